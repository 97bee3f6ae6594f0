package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"
)

// Stream abre un stream SSE de chat completions. El canal se cierra al recibir
// [DONE], al terminar el cuerpo o al cancelarse ctx; un error de lectura o de
// parseo se entrega como ultimo chunk.
func (c *OpenAIClient) Stream(ctx context.Context, prompt, model string) (<-chan StreamChunk, error) {
	model, err := c.prepare(prompt, model)
	if err != nil {
		return nil, err
	}

	headers := c.headers()
	headers["Accept"] = "text/event-stream"
	resp, err := c.postJSON(ctx, c.baseURL+"/chat/completions", c.buildRequest(prompt, model, true), headers)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		_, err := c.readBody(ProviderOpenAI, resp, openAIErrorMessage)
		return nil, err
	}

	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		send := func(chunk StreamChunk) bool {
			select {
			case out <- chunk:
				return true
			case <-ctx.Done():
				return false
			}
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return
			}

			var ev openAIStreamEvent
			if err := json.Unmarshal([]byte(data), &ev); err != nil {
				send(StreamChunk{Err: malformed(ProviderOpenAI, "invalid stream event: "+err.Error())})
				return
			}
			if ev.Error != nil {
				send(StreamChunk{Err: &UpstreamError{Provider: ProviderOpenAI, StatusCode: resp.StatusCode, Message: ev.Error.Message}})
				return
			}
			if len(ev.Choices) == 0 || ev.Choices[0].Delta.Content == "" {
				continue
			}
			if !send(StreamChunk{Text: ev.Choices[0].Delta.Content}) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			c.logger.Warn("openai stream read failed", zap.Error(err), zap.String("model", model))
			send(StreamChunk{Err: err})
		}
	}()

	return out, nil
}
