// Package llm реализует клиента для чат-комплишн API провайдера ЛЛМ.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"unibotserver/models"
)

// Значения по умолчанию, если активная конфигурация отсутствует.
// Подстановка значений по умолчанию никогда не приводит к ошибке.
const (
	defaultModel             = "mistralai/Mistral-7B-Instruct-v0.1"
	defaultMaxTokens         = 500
	defaultTemperature       = 0.7
	defaultTopP              = 0.9
	defaultRepetitionPenalty = 1.0

	requestTimeout = 30 * time.Second
)

// ConfigSource отдаёт активные конфигурационные записи.
// Отсутствие записи кодируется как (nil, nil).
type ConfigSource interface {
	ActiveAPIConfig(ctx context.Context) (*models.APIKeyConfig, error)
	ActiveModelConfig(ctx context.Context) (*models.AIModelConfig, error)
}

// Message — одно сообщение диалога в формате провайдера.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest описывает тело POST-запроса к API провайдера.
type ChatCompletionRequest struct {
	Model             string    `json:"model"`
	Messages          []Message `json:"messages"`
	MaxTokens         int       `json:"max_tokens"`
	Temperature       float64   `json:"temperature"`
	TopP              float64   `json:"top_p"`
	RepetitionPenalty float64   `json:"repetition_penalty"`
	Stream            bool      `json:"stream"`
}

// ChatCompletionChoice — один из вариантов ответа провайдера.
type ChatCompletionChoice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// ChatCompletionResponse описывает ответ API провайдера.
type ChatCompletionResponse struct {
	ID      string                 `json:"id"`
	Model   string                 `json:"model"`
	Choices []ChatCompletionChoice `json:"choices"`
	Usage   struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Result — результат одного обращения к провайдеру.
type Result struct {
	Success      bool    `json:"success"`
	Message      string  `json:"message,omitempty"`
	Error        string  `json:"error,omitempty"`
	ResponseTime float64 `json:"responseTime"` // в секундах
	TokensUsed   int     `json:"tokensUsed"`
	Model        string  `json:"model,omitempty"`
}

// Client — клиент чат-комплишн API. Не хранит состояния между вызовами,
// конфигурация разрешается на каждый запрос.
type Client struct {
	configs ConfigSource
	http    *http.Client
	logger  *log.Logger
}

// NewClient создает Client. Если logger == nil, используется log.Default().
func NewClient(configs ConfigSource, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		configs: configs,
		http:    &http.Client{Timeout: requestTimeout},
		logger:  logger,
	}
}

// Complete отправляет диалог провайдеру и возвращает результат.
// Один синхронный запрос без повторов: при ошибке сети или не-200 статусе
// возвращается Result с Success=false и текстом ошибки.
func (c *Client) Complete(ctx context.Context, messages []Message) Result {
	apiURL, apiKey := c.resolveEndpoint(ctx)
	model, maxTokens, temperature, topP, repPenalty := c.resolveModel(ctx)

	reqBody := ChatCompletionRequest{
		Model:             model,
		Messages:          messages,
		MaxTokens:         maxTokens,
		Temperature:       temperature,
		TopP:              topP,
		RepetitionPenalty: repPenalty,
		Stream:            false,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return Result{Success: false, Error: fmt.Sprintf("marshal request body: %v", err)}
	}

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(payload))
	if err != nil {
		return Result{Success: false, Error: fmt.Sprintf("create HTTP request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.http.Do(req)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		c.logger.Printf("ЛЛМ: запрос не выполнен: %v", err)
		return Result{Success: false, Error: fmt.Sprintf("request failed: %v", err), ResponseTime: elapsed}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		errMsg := fmt.Sprintf("API error: %d - %s", resp.StatusCode, string(body))
		c.logger.Printf("ЛЛМ: %s", errMsg)
		return Result{Success: false, Error: errMsg, ResponseTime: elapsed}
	}

	var completion ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return Result{Success: false, Error: fmt.Sprintf("decode response: %v", err), ResponseTime: elapsed}
	}
	if len(completion.Choices) == 0 {
		return Result{Success: false, Error: "API returned no choices", ResponseTime: elapsed}
	}

	c.logger.Printf("ЛЛМ: ответ получен за %.2fs (%d токенов)", elapsed, completion.Usage.TotalTokens)

	return Result{
		Success:      true,
		Message:      completion.Choices[0].Message.Content,
		ResponseTime: elapsed,
		TokensUsed:   completion.Usage.TotalTokens,
		Model:        model,
	}
}

// resolveEndpoint выбирает адрес и ключ API: активная запись в БД, иначе
// переменные окружения, иначе значения по умолчанию.
func (c *Client) resolveEndpoint(ctx context.Context) (apiURL, apiKey string) {
	apiURL = env("LLM_API_URL", "https://api.together.xyz/v1/chat/completions")
	apiKey = os.Getenv("LLM_API_KEY")

	if c.configs == nil {
		return apiURL, apiKey
	}
	cfg, err := c.configs.ActiveAPIConfig(ctx)
	if err != nil {
		c.logger.Printf("ЛЛМ: не удалось получить конфигурацию API, используются значения по умолчанию: %v", err)
		return apiURL, apiKey
	}
	if cfg != nil {
		if cfg.APIURL != "" {
			apiURL = cfg.APIURL
		}
		if cfg.APIKey != "" {
			apiKey = cfg.APIKey
		}
	}
	return apiURL, apiKey
}

// resolveModel выбирает модель и параметры сэмплинга аналогично resolveEndpoint.
func (c *Client) resolveModel(ctx context.Context) (model string, maxTokens int, temperature, topP, repPenalty float64) {
	model = defaultModel
	maxTokens = defaultMaxTokens
	temperature = defaultTemperature
	topP = defaultTopP
	repPenalty = defaultRepetitionPenalty

	if c.configs == nil {
		return
	}
	cfg, err := c.configs.ActiveModelConfig(ctx)
	if err != nil {
		c.logger.Printf("ЛЛМ: не удалось получить конфигурацию модели, используются значения по умолчанию: %v", err)
		return
	}
	if cfg != nil {
		model = cfg.ModelName
		maxTokens = cfg.MaxTokens
		temperature = cfg.Temperature
		topP = cfg.TopP
		repPenalty = cfg.RepetitionPenalty
	}
	return
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
