package event

import (
	"testing"

	"github.com/example/notification-pipeline/internal/model"
)

func TestTopicForChannel(t *testing.T) {
	tests := []struct {
		channel model.ChannelType
		want    string
	}{
		{channel: model.ChannelEmail, want: "dispatch.email"},
		{channel: model.ChannelSMS, want: "dispatch.sms"},
		{channel: model.ChannelPush, want: "dispatch.push"},
		{channel: model.ChannelWhatsApp, want: "dispatch.wa"},
		{channel: model.ChannelSlack, want: "dispatch.slack"},
		{channel: model.ChannelType("pigeon"), want: ""},
	}

	for _, tc := range tests {
		if got := TopicForChannel(tc.channel); got != tc.want {
			t.Errorf("TopicForChannel(%q) = %q, expected %q", tc.channel, got, tc.want)
		}
	}
}
