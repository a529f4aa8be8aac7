package domain

// Activity types handled by the bot.
const (
	ActivityMessage            = "message"
	ActivityConversationUpdate = "conversationUpdate"
)

const (
	ContentTypeHeroCard     = "application/vnd.microsoft.card.hero"
	ContentTypeAdaptiveCard = "application/vnd.microsoft.card.adaptive"

	ActionImBack = "imBack"

	LayoutCarousel = "carousel"
)

// ChannelAccount identifies a participant in a conversation.
type ChannelAccount struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// ConversationAccount identifies the conversation an activity belongs to.
type ConversationAccount struct {
	ID string `json:"id"`
}

// Activity is the inbound and outbound conversational event shape.
type Activity struct {
	Type             string              `json:"type"`
	ID               string              `json:"id,omitempty"`
	ChannelID        string              `json:"channelId,omitempty"`
	Text             string              `json:"text,omitempty"`
	From             ChannelAccount      `json:"from"`
	Recipient        ChannelAccount      `json:"recipient"`
	Conversation     ConversationAccount `json:"conversation"`
	MembersAdded     []ChannelAccount    `json:"membersAdded,omitempty"`
	Attachments      []Attachment        `json:"attachments,omitempty"`
	AttachmentLayout string              `json:"attachmentLayout,omitempty"`
	ReplyToID        string              `json:"replyToId,omitempty"`
}

// Attachment carries a card or other rich content.
type Attachment struct {
	ContentType string `json:"contentType"`
	Content     any    `json:"content"`
}

// HeroCard is a card with a title, text, optional images and buttons.
type HeroCard struct {
	Title    string       `json:"title,omitempty"`
	Subtitle string       `json:"subtitle,omitempty"`
	Text     string       `json:"text,omitempty"`
	Images   []CardImage  `json:"images,omitempty"`
	Buttons  []CardAction `json:"buttons,omitempty"`
}

type CardImage struct {
	URL string `json:"url"`
}

// CardAction is a button; imBack actions post Value back as the user's message.
type CardAction struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	Value string `json:"value"`
}

// ToAttachment wraps the card for sending.
func (c HeroCard) ToAttachment() Attachment {
	return Attachment{ContentType: ContentTypeHeroCard, Content: c}
}

// MessageActivity builds a plain text message.
func MessageActivity(text string, attachments ...Attachment) Activity {
	return Activity{Type: ActivityMessage, Text: text, Attachments: attachments}
}
