package llm

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/Morwran/yagpt"
	"github.com/robfig/cron/v3"
)

// iamRefreshSchedule keeps the IAM token fresh; Yandex IAM tokens expire
// after 12 hours.
const iamRefreshSchedule = "@every 1h"

type YandexClient struct {
	ya         yagpt.YaGPTFace
	oauthToken string
	cron       *cron.Cron
	mu         sync.RWMutex
	iamToken   string
}

func NewYandex(oauthToken, folderID string) (*YandexClient, error) {
	token, err := createIAMToken(oauthToken)
	if err != nil {
		return nil, err
	}

	ya, err := yagpt.NewYagpt(folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to init yagpt: %w", err)
	}

	c := &YandexClient{
		ya:         ya,
		oauthToken: oauthToken,
		cron:       cron.New(),
		iamToken:   token,
	}
	if _, err := c.cron.AddFunc(iamRefreshSchedule, c.refreshIAMToken); err != nil {
		return nil, fmt.Errorf("failed to schedule iam refresh: %w", err)
	}
	c.cron.Start()
	return c, nil
}

func createIAMToken(oauthToken string) (string, error) {
	iam, err := yagpt.NewYaIam(oauthToken)
	if err != nil {
		return "", fmt.Errorf("failed to init yandex iam: %w", err)
	}
	resp, err := iam.Create()
	if err != nil {
		return "", fmt.Errorf("failed to create iam token: %w", err)
	}
	return resp.IamToken, nil
}

func (c *YandexClient) refreshIAMToken() {
	token, err := createIAMToken(c.oauthToken)
	if err != nil {
		log.Printf("failed to refresh yandex iam token: %v", err)
		return
	}
	c.mu.Lock()
	c.iamToken = token
	c.mu.Unlock()
	log.Printf("yandex iam token refreshed")
}

func (c *YandexClient) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.iamToken
}

func (c *YandexClient) Close() {
	c.cron.Stop()
}

func (c *YandexClient) Generate(ctx context.Context, messages []Message) (Response, error) {
	yaMsgs := make([]yagpt.Message, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		// yagpt knows only system/user/assistant.
		if role == "developer" {
			role = "system"
		}
		yaMsgs = append(yaMsgs, yagpt.Message{Role: role, Content: m.Content})
	}

	resp, err := c.ya.CompletionWithCtx(ctx, c.token(), yaMsgs)
	if err != nil {
		return Response{}, fmt.Errorf("yagpt completion failed: %w", err)
	}
	if resp == nil || len(resp.Alternatives) == 0 {
		return Response{}, fmt.Errorf("yagpt returned empty response")
	}
	out := Response{Content: resp.Alternatives[0].Message.Content, Model: yagpt.YaModelLite}
	out.PromptTokens = int(resp.Usage.InputTextTokens)
	out.CompletionTokens = int(resp.Usage.CompletionTokens)
	out.TotalTokens = int(resp.Usage.TotalTokens)
	return out, nil
}
