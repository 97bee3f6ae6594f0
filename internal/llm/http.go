package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// postJSON serializa body, ejecuta el POST y devuelve la respuesta sin leer.
// El caller es responsable de cerrar resp.Body.
func (c *baseClient) postJSON(ctx context.Context, url string, body any, headers map[string]string) (*http.Response, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	return resp, nil
}

// readBody lee el cuerpo completo y convierte los status no 2xx en UpstreamError.
// extractMsg obtiene el mensaje de error del sobre JSON propio de cada proveedor.
func (c *baseClient) readBody(provider string, resp *http.Response, extractMsg func([]byte) string) ([]byte, error) {
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := ""
		if extractMsg != nil {
			msg = extractMsg(respBody)
		}
		if msg == "" {
			msg = truncate(string(respBody), 200)
		}
		return nil, &UpstreamError{Provider: provider, StatusCode: resp.StatusCode, Message: msg}
	}
	return respBody, nil
}
