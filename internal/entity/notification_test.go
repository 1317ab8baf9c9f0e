package entity

import (
	"testing"
)

func TestChannelExternal(t *testing.T) {
	tests := []struct {
		channel Channel
		want    bool
	}{
		{ChannelEmail, true},
		{ChannelSMS, true},
		{ChannelPush, true},
		{ChannelInApp, false},
	}

	for _, tt := range tests {
		if got := tt.channel.External(); got != tt.want {
			t.Errorf("Channel(%q).External() = %v, want %v", tt.channel, got, tt.want)
		}
	}
}

func TestExternalChannels(t *testing.T) {
	n := Notification{Channels: []Channel{ChannelInApp, ChannelEmail, ChannelPush}}

	got := n.ExternalChannels()
	if len(got) != 2 {
		t.Fatalf("expected 2 external channels, got %d", len(got))
	}
	if got[0] != ChannelEmail || got[1] != ChannelPush {
		t.Errorf("unexpected channels %v", got)
	}
}

func TestEnumValidity(t *testing.T) {
	valid := []struct {
		name string
		ok   bool
	}{
		{"email", Channel("email").IsValid()},
		{"fax", !Channel("fax").IsValid()},
		{"info", Type("info").IsValid()},
		{"loud", !Type("loud").IsValid()},
		{"urgent", Priority("urgent").IsValid()},
		{"vip", Segment("vip").IsValid()},
		{"platinum", !Segment("platinum").IsValid()},
	}

	for _, tt := range valid {
		if !tt.ok {
			t.Errorf("validity check failed for %q", tt.name)
		}
	}
}
