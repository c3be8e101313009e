package mqtt

import "strings"

// ParseStatusTopic extracts the entity id from a status topic of the
// form "<prefix>/status/<entity-id>". Entity ids may themselves contain
// slashes. Returns false if the topic has a different shape.
func ParseStatusTopic(prefix, topic string) (string, bool) {
	head := prefix + "/status/"
	if !strings.HasPrefix(topic, head) {
		return "", false
	}
	entityID := topic[len(head):]
	if entityID == "" {
		return "", false
	}
	return entityID, true
}
