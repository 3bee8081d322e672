package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/net/html"
)

// CSRFToken devuelve el token para X-CSRFToken: la cookie csrftoken si existe;
// si no, carga la página de documentos y lo toma de la cookie o del campo oculto.
func (c *Client) CSRFToken(ctx context.Context) (string, error) {
	if tok := c.cookieToken(); tok != "" {
		return tok, nil
	}
	c.mu.Lock()
	cached := c.csrf
	c.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pagePath, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("client: obtener token csrf: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return "", err
	}

	tok := c.cookieToken()
	if tok == "" {
		tok = ExtractCSRF(io.LimitReader(resp.Body, 1<<20))
	}
	if tok == "" {
		return "", fmt.Errorf("client: la página no entregó token csrf")
	}
	c.mu.Lock()
	c.csrf = tok
	c.mu.Unlock()
	return tok, nil
}

func (c *Client) cookieToken() string {
	u, err := url.Parse(c.baseURL + "/")
	if err != nil || c.http.Jar == nil {
		return ""
	}
	for _, ck := range c.http.Jar.Cookies(u) {
		if ck.Name == csrfCookie && ck.Value != "" {
			return ck.Value
		}
	}
	return ""
}

// ExtractCSRF busca <input name="csrfmiddlewaretoken" value="..."> en el HTML.
func ExtractCSRF(r io.Reader) string {
	doc, err := html.Parse(r)
	if err != nil {
		return ""
	}
	var walk func(*html.Node) string
	walk = func(n *html.Node) string {
		if n.Type == html.ElementNode && n.Data == "input" {
			var name, value string
			for _, a := range n.Attr {
				switch a.Key {
				case "name":
					name = a.Val
				case "value":
					value = a.Val
				}
			}
			if name == "csrfmiddlewaretoken" && value != "" {
				return value
			}
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			if v := walk(ch); v != "" {
				return v
			}
		}
		return ""
	}
	return walk(doc)
}
