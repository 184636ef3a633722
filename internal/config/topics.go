package config

// NSQ topics. The record write path publishes one signal per enrichment
// kind; the signal consumer folds them into the durable queue.
const (
	TopicEnrichSignal = "enrich.signal"
)
