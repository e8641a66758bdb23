package publishers

import (
	"context"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
)

func TestPubSubSinkPublishes(t *testing.T) {
	// Use the in-memory Pub/Sub emulator.
	server := pstest.NewServer()
	defer server.Close()
	t.Setenv("PUBSUB_EMULATOR_HOST", server.Addr)

	ctx := context.Background()
	admin, err := pubsub.NewClient(ctx, "test-project")
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	defer admin.Close()
	if _, err := admin.CreateTopic(ctx, "verdicts"); err != nil {
		t.Fatalf("create topic: %v", err)
	}

	fanout, err := Build(ctx, []SinkConfig{{
		ID:         "gcp",
		Type:       TypePubSub,
		Attributes: []string{AttrStatus, AttrKind},
		PubSub:     &PubSubConfig{ProjectID: "test-project", Topic: "verdicts"},
	}}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer fanout.Close()

	if d, err := fanout.Publish(ctx, testEvent()); err != nil || d.Delivered != 1 {
		t.Fatalf("Publish: %+v %v", d, err)
	}

	msgs := server.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Attributes[AttrStatus] != "✅ True" || msgs[0].Attributes[AttrKind] != KindText {
		t.Fatalf("attributes = %v", msgs[0].Attributes)
	}
}
