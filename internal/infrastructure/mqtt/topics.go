package mqtt

import "strings"

// DefaultTopicPrefix is used when mqtt.topic_prefix is empty.
const DefaultTopicPrefix = "apiws"

// Topics builds the gateway's topic names under one prefix:
//
//	<prefix>/status                  retained online/offline status
//	<prefix>/events/<room>/<event>   mirrored relay broadcasts
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	p := strings.Trim(t.Prefix, "/")
	if p == "" {
		return DefaultTopicPrefix
	}
	return p
}

// Status returns the retained status topic.
func (t Topics) Status() string {
	return t.prefix() + "/status"
}

// RelayEvent returns the topic a broadcast of event to room is mirrored on.
func (t Topics) RelayEvent(room, event string) string {
	return t.prefix() + "/events/" + room + "/" + event
}

// AllRelayEvents is the wildcard matching every mirrored broadcast.
func (t Topics) AllRelayEvents() string {
	return t.prefix() + "/events/+/+"
}
