package events

import (
	"github.com/maxaizer/recruit-pipeline/internal/domain/models"
	"strings"
)

type Kind string

const (
	KindProposalChanged    Kind = "proposal_changed"
	KindMessageReceived    Kind = "message_received"
	KindChannelReconnected Kind = "channel_reconnected"
)

// ProposalChanged carries the proposal as written. Actor is the email of whoever wrote it.
type ProposalChanged struct {
	Proposal models.Proposal
	Actor    string
}

type MessageReceived struct {
	Message models.Message
}

type ChannelReconnected struct {
	ViewerEmail string
}

// Topic returns the in-process bus topic of kind for a viewer.
func Topic(viewerEmail string, kind Kind) string {
	return "viewer:" + strings.ToLower(viewerEmail) + ":" + string(kind)
}

func ProposalChangedTopic(viewerEmail string) string {
	return Topic(viewerEmail, KindProposalChanged)
}

func MessageReceivedTopic(viewerEmail string) string {
	return Topic(viewerEmail, KindMessageReceived)
}

func ChannelReconnectedTopic(viewerEmail string) string {
	return Topic(viewerEmail, KindChannelReconnected)
}
