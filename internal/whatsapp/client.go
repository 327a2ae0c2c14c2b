package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"showroom-gateway/internal/config"

	"github.com/rotisserie/eris"
)

const defaultGraphBase = "https://graph.facebook.com/v19.0"

// Client sends messages through the WhatsApp Cloud API.
type Client struct {
	token         string
	phoneNumberID string
	baseURL       string
	http          *http.Client
}

func NewClient(cfg *config.Config) *Client {
	base := cfg.GraphAPIBase
	if base == "" {
		base = defaultGraphBase
	}
	return &Client{
		token:         cfg.WhatsAppToken,
		phoneNumberID: cfg.PhoneNumberID,
		baseURL:       strings.TrimRight(base, "/"),
		http:          &http.Client{Timeout: 30 * time.Second},
	}
}

// --- Message Structures ---

type GenericMessage struct {
	MessagingProduct string    `json:"messaging_product"`
	RecipientType    string    `json:"recipient_type,omitempty"`
	To               string    `json:"to"`
	Type             string    `json:"type"`
	Text             *TextObj  `json:"text,omitempty"`
	Image            *MediaObj `json:"image,omitempty"`
	Document         *MediaObj `json:"document,omitempty"`
}

type TextObj struct {
	Body       string `json:"body"`
	PreviewUrl bool   `json:"preview_url,omitempty"`
}

type MediaObj struct {
	ID       string `json:"id,omitempty"`
	Link     string `json:"link,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"` // documents only
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

type MediaResponse struct {
	ID string `json:"id"`
}

// APIError is a Graph API answer with status >= 400.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("graph api error: %d - %s", e.Status, e.Body)
}

// --- Helper Functions ---

func (c *Client) sendRequest(ctx context.Context, method, url string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, eris.Wrap(err, "build graph request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "graph request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "read graph response")
	}
	if resp.StatusCode >= 400 {
		return respBody, &APIError{Status: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}

// --- Messaging Methods ---

// SendRawMessage posts msg and returns the provider message id.
func (c *Client) SendRawMessage(ctx context.Context, msg GenericMessage) (string, error) {
	msg.MessagingProduct = "whatsapp"
	data, err := json.Marshal(msg)
	if err != nil {
		return "", eris.Wrap(err, "marshal message")
	}
	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	respBody, err := c.sendRequest(ctx, http.MethodPost, url, bytes.NewReader(data), "application/json")
	if err != nil {
		return "", err
	}

	var out sendResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", eris.Wrap(err, "decode send response")
	}
	if len(out.Messages) == 0 {
		return "", nil
	}
	return out.Messages[0].ID, nil
}

func (c *Client) SendText(ctx context.Context, to, body string) (string, error) {
	return c.SendRawMessage(ctx, GenericMessage{
		To:   to,
		Type: "text",
		Text: &TextObj{Body: body},
	})
}

// SendImage sends an image by public link, or by media id when ref does not
// look like a URL.
func (c *Client) SendImage(ctx context.Context, to, ref, caption string) (string, error) {
	media := &MediaObj{Caption: caption}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		media.Link = ref
	} else {
		media.ID = ref
	}
	return c.SendRawMessage(ctx, GenericMessage{To: to, Type: "image", Image: media})
}

// SendDocument uploads content and sends it as a document.
func (c *Client) SendDocument(ctx context.Context, to string, content []byte, mimeType, filename, caption string) (string, error) {
	media, err := c.UploadMedia(ctx, content, mimeType, filename)
	if err != nil {
		return "", err
	}
	return c.SendRawMessage(ctx, GenericMessage{
		To:   to,
		Type: "document",
		Document: &MediaObj{
			ID:       media.ID,
			Caption:  caption,
			Filename: filename,
		},
	})
}

// --- Media Methods ---

func (c *Client) UploadMedia(ctx context.Context, fileData []byte, mimeType, filename string) (*MediaResponse, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	header.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, eris.Wrap(err, "create upload part")
	}
	if _, err := part.Write(fileData); err != nil {
		return nil, eris.Wrap(err, "write upload part")
	}
	writer.WriteField("messaging_product", "whatsapp")
	writer.WriteField("type", mimeType)
	if err := writer.Close(); err != nil {
		return nil, eris.Wrap(err, "close upload body")
	}

	url := fmt.Sprintf("%s/%s/media", c.baseURL, c.phoneNumberID)
	respBody, err := c.sendRequest(ctx, http.MethodPost, url, body, writer.FormDataContentType())
	if err != nil {
		return nil, eris.Wrap(err, "upload media")
	}

	var mediaResp MediaResponse
	if err := json.Unmarshal(respBody, &mediaResp); err != nil {
		return nil, eris.Wrap(err, "decode media response")
	}
	return &mediaResp, nil
}
