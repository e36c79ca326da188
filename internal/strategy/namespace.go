package strategy

// NamespacedKey derives the fully-qualified storage key for a caller-supplied
// key. The "default" strategy omits its own segment so unprefixed keys written
// by older code remain reachable. Two distinct (strategy, userKey) pairs never
// collide because every non-default strategy contributes its own "name:"
// segment.
func NamespacedKey(globalPrefix, strategyName, userKey string) string {
	if strategyName == Default {
		return globalPrefix + userKey
	}
	return globalPrefix + strategyName + ":" + userKey
}

// Prefix returns the namespace prefix under which every key of the strategy
// lives. It is a plain string prefix, not a match pattern; the distributed
// tier is responsible for converting it into its own wildcard syntax.
func Prefix(globalPrefix, strategyName string) string {
	return NamespacedKey(globalPrefix, strategyName, "")
}
