package models

// MetaPayload is the Cloud API webhook body: entry -> changes -> value.
type MetaPayload struct {
	Object string      `json:"object"`
	Entry  []MetaEntry `json:"entry"`
}

type MetaEntry struct {
	ID      string       `json:"id"`
	Changes []MetaChange `json:"changes"`
}

type MetaChange struct {
	Value MetaValue `json:"value"`
	Field string    `json:"field"`
}

type MetaValue struct {
	MessagingProduct string `json:"messaging_product"`
	Metadata         struct {
		DisplayPhoneNumber string `json:"display_phone_number"`
		PhoneNumberID      string `json:"phone_number_id"`
	} `json:"metadata"`
	Messages []MetaMessage `json:"messages,omitempty"`
	Statuses []struct {
		ID          string `json:"id"`
		Status      string `json:"status"`
		Timestamp   string `json:"timestamp"`
		RecipientID string `json:"recipient_id"`
	} `json:"statuses,omitempty"`
}

type MetaMessage struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
	Image       *MediaMessage       `json:"image,omitempty"`
	Document    *MediaMessage       `json:"document,omitempty"`
	Interactive *InteractiveMessage `json:"interactive,omitempty"`
}

// Content flattens the message into the text and media reference the
// orchestrator consumes. Captions count as text.
func (m MetaMessage) Content() (text, mediaRef string) {
	switch m.Type {
	case "text":
		return m.Text.Body, ""
	case "image":
		if m.Image != nil {
			return m.Image.Caption, m.Image.ID
		}
	case "document":
		if m.Document != nil {
			return m.Document.Caption, m.Document.ID
		}
	case "interactive":
		if m.Interactive != nil {
			switch {
			case m.Interactive.ButtonReply != nil:
				return m.Interactive.ButtonReply.Title, ""
			case m.Interactive.ListReply != nil:
				return m.Interactive.ListReply.Title, ""
			}
		}
	}
	return "", ""
}

type MediaMessage struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
}

type InteractiveMessage struct {
	Type        string       `json:"type"`
	ButtonReply *ButtonReply `json:"button_reply,omitempty"`
	ListReply   *ListReply   `json:"list_reply,omitempty"`
}

type ButtonReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type ListReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// GatewayPayload is the generic gateway form. Older gateways send clientId
// instead of accountId and may batch messages.
type GatewayPayload struct {
	AccountID string           `json:"accountId"`
	ClientID  string           `json:"clientId"`
	Event     string           `json:"event"`
	Message   *GatewayMessage  `json:"message,omitempty"`
	Messages  []GatewayMessage `json:"messages,omitempty"`
}

func (p GatewayPayload) Account() string {
	if p.AccountID != "" {
		return p.AccountID
	}
	return p.ClientID
}

type GatewayMessage struct {
	ID                string `json:"id"`
	ExternalMessageID string `json:"externalMessageId"`
	From              string `json:"from"`
	Text              string `json:"text"`
	MediaRef          string `json:"mediaRef,omitempty"`
	Timestamp         int64  `json:"timestamp,omitempty"`
}

func (m GatewayMessage) MessageID() string {
	if m.ExternalMessageID != "" {
		return m.ExternalMessageID
	}
	return m.ID
}
