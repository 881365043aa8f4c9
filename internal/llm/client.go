// Copyright (c) 2021-2026 Rustam Gilyazov and Contributors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sashabaranov/go-openai"
)

// Prompt is the instruction sent with the image.
const Prompt = "Describe this image in detail in markdown. " +
	"Transcribe all the text it contains. Do not add any commentary."

const (
	defTimeout   = 120 * time.Second
	defMaxTokens = 2048
)

var ErrEmptyResponse = errors.New("empty response from the model")

// Client describes the images with the model.  The nil Client is valid and
// describes nothing.
type Client struct {
	creds Credentials
	desc  describeFunc
	lg    *slog.Logger
}

type describeFunc func(ctx context.Context, mime string, data []byte) (string, error)

// Option is the Client option.
type Option func(*options)

type options struct {
	hc *http.Client
	lg *slog.Logger
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		if hc != nil {
			o.hc = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(lg *slog.Logger) Option {
	return func(o *options) {
		if lg != nil {
			o.lg = lg
		}
	}
}

// New returns the client for the credentials.  If creds are empty, it
// returns nil.
func New(creds Credentials, opts ...Option) (*Client, error) {
	if creds.IsZero() {
		return nil, nil
	}
	o := options{
		hc: &http.Client{Timeout: defTimeout},
		lg: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	c := &Client{creds: creds, lg: o.lg}
	switch creds.Provider {
	case OpenRouter, OpenAI:
		cfg := openai.DefaultConfig(creds.Key)
		if creds.BaseURL != "" {
			cfg.BaseURL = creds.BaseURL
		}
		cfg.HTTPClient = o.hc
		c.desc = openaiDescriber(openai.NewClientWithConfig(cfg), creds.Model)
	case Anthropic:
		aopts := []option.RequestOption{option.WithAPIKey(creds.Key), option.WithHTTPClient(o.hc)}
		if creds.BaseURL != "" {
			aopts = append(aopts, option.WithBaseURL(creds.BaseURL))
		}
		ac := anthropic.NewClient(aopts...)
		c.desc = anthropicDescriber(&ac, creds.Model)
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownProvider, creds.Provider)
	}
	return c, nil
}

// Describe returns the markdown description of the image data of the given
// media type.
func (c *Client) Describe(ctx context.Context, mime string, data []byte) (string, error) {
	if c == nil {
		return "", nil
	}
	start := time.Now()
	text, err := c.desc(ctx, mime, data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", c.creds.Provider, err)
	}
	c.lg.DebugContext(ctx, "image described", "provider", c.creds.Provider, "model", c.creds.Model, "took", time.Since(start))
	return text, nil
}

func openaiDescriber(oc *openai.Client, model string) describeFunc {
	return func(ctx context.Context, mime string, data []byte) (string, error) {
		resp, err := oc.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:     model,
			MaxTokens: defMaxTokens,
			Messages: []openai.ChatCompletionMessage{
				{
					Role: openai.ChatMessageRoleUser,
					MultiContent: []openai.ChatMessagePart{
						{Type: openai.ChatMessagePartTypeText, Text: Prompt},
						{
							Type: openai.ChatMessagePartTypeImageURL,
							ImageURL: &openai.ChatMessageImageURL{
								URL:    "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data),
								Detail: openai.ImageURLDetailAuto,
							},
						},
					},
				},
			},
		})
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
			return "", ErrEmptyResponse
		}
		return resp.Choices[0].Message.Content, nil
	}
}

func anthropicDescriber(ac *anthropic.Client, model string) describeFunc {
	return func(ctx context.Context, mime string, data []byte) (string, error) {
		msg, err := ac.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(model),
			MaxTokens: defMaxTokens,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(
					anthropic.NewImageBlockBase64(mime, base64.StdEncoding.EncodeToString(data)),
					anthropic.NewTextBlock(Prompt),
				),
			},
		})
		if err != nil {
			return "", err
		}
		var b strings.Builder
		for _, block := range msg.Content {
			if block.Type == "text" {
				b.WriteString(block.Text)
			}
		}
		if strings.TrimSpace(b.String()) == "" {
			return "", ErrEmptyResponse
		}
		return b.String(), nil
	}
}
