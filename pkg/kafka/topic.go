package kafka

// TopicPrefix namespaces every topic the service produces.
const TopicPrefix = "jobportal"

// Topic returns the topic name for an aggregate and action, e.g.
// Topic("user", "registered") is "jobportal.user.registered".
func Topic(aggregate, action string) string {
	return TopicPrefix + "." + aggregate + "." + action
}
