package core

// Streamer is any service that can push full entity snapshots to live
// subscribers. Every publication replaces the previous state of the topic;
// consumers must never merge.
type Streamer interface {
	Publish(topic string, snapshot interface{})
}

// NopStreamer drops all publications.
type NopStreamer struct{}

func (NopStreamer) Publish(string, interface{}) {}
