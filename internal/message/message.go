package message

import (
	"go.mau.fi/whatsmeow/proto/waE2E"

	"github.com/hanifabd/go-whatsapp-webhook-api/pkg/whatsapp"
)

// ContentType tags the normalized shape of an inbound message body.
type ContentType string

const (
	ContentText     ContentType = "text"
	ContentImage    ContentType = "image"
	ContentVideo    ContentType = "video"
	ContentAudio    ContentType = "audio"
	ContentDocument ContentType = "document"
	ContentSticker  ContentType = "sticker"
	ContentLocation ContentType = "location"
	ContentContact  ContentType = "contact"
	ContentOther    ContentType = "other"
)

// InboundMessage is the canonical normalized form handed to the delivery
// engine and local handlers. Content is a string for text messages and a
// MediaContent for everything carrying media.
type InboundMessage struct {
	ID        string      `json:"id"`
	From      string      `json:"from"`
	Timestamp int64       `json:"timestamp"`
	Type      ContentType `json:"messageType"`
	Content   any         `json:"message"`
}

// MediaContent describes a media body without the media bytes themselves.
type MediaContent struct {
	Caption   string `json:"caption,omitempty"`
	FileName  string `json:"fileName,omitempty"`
	MediaType string `json:"mediaType"`
}

// Normalize maps a raw transport message into InboundMessage form. It returns
// ok=false for messages that must not be relayed: self-echoes and empty
// bodies. The mapping is pure, the same raw input always yields the same
// result.
func Normalize(raw whatsapp.RawMessage) (InboundMessage, bool) {
	if raw.IsFromMe {
		return InboundMessage{}, false
	}
	if raw.Message == nil {
		return InboundMessage{}, false
	}

	out := InboundMessage{
		ID:        raw.ID,
		From:      raw.Chat,
		Timestamp: raw.Timestamp,
	}

	msg := raw.Message
	switch {
	case msg.GetConversation() != "":
		out.Type = ContentText
		out.Content = msg.GetConversation()
	case msg.GetExtendedTextMessage().GetText() != "":
		out.Type = ContentText
		out.Content = msg.GetExtendedTextMessage().GetText()
	case msg.GetImageMessage() != nil:
		out.Type = ContentImage
		out.Content = MediaContent{
			Caption:   msg.GetImageMessage().GetCaption(),
			MediaType: string(ContentImage),
		}
	case msg.GetVideoMessage() != nil:
		out.Type = ContentVideo
		out.Content = MediaContent{
			Caption:   msg.GetVideoMessage().GetCaption(),
			MediaType: string(ContentVideo),
		}
	case msg.GetAudioMessage() != nil:
		out.Type = ContentAudio
		out.Content = MediaContent{
			MediaType: string(ContentAudio),
		}
	case msg.GetDocumentMessage() != nil:
		out.Type = ContentDocument
		out.Content = MediaContent{
			Caption:   msg.GetDocumentMessage().GetCaption(),
			FileName:  msg.GetDocumentMessage().GetFileName(),
			MediaType: string(ContentDocument),
		}
	default:
		tag := fallbackTag(msg)
		if tag == "" {
			return InboundMessage{}, false
		}
		out.Type = ContentOther
		out.Content = MediaContent{MediaType: tag}
	}

	return out, true
}

// fallbackTag names message kinds that are relayed as-is without a dedicated
// normalized shape. Protocol-only payloads (receipts, key distribution) map
// to "" and are dropped.
func fallbackTag(msg *waE2E.Message) string {
	switch {
	case msg.GetStickerMessage() != nil:
		return string(ContentSticker)
	case msg.GetLocationMessage() != nil:
		return string(ContentLocation)
	case msg.GetContactMessage() != nil:
		return string(ContentContact)
	case msg.GetReactionMessage() != nil:
		return "reaction"
	case msg.GetPollCreationMessageV3() != nil || msg.GetPollCreationMessage() != nil:
		return "poll"
	default:
		return ""
	}
}
