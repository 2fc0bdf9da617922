package scrape

import (
	"net/http"
	"strings"
)

// BlockType describes why a site refused to serve its content.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
)

// jsShellLimit is the body size under which a noscript page or a meta
// refresh is treated as an empty client-rendered shell.
const jsShellLimit = 2000

var (
	challengeMarkers = []string{
		"checking your browser",
		"cf-browser-verification",
		"verification de securite",
		"vérification de sécurité",
	}
	captchaMarkers = []string{"captcha", "recaptcha", "hcaptcha", "turnstile"}
)

// DetectBlock inspects a response for anti-bot protection. A nil response
// is never blocked.
func DetectBlock(resp *http.Response, body []byte) (bool, BlockType) {
	if resp == nil {
		return false, BlockNone
	}
	bt := classifyBlock(resp.StatusCode, resp.Header, body)
	return bt != BlockNone, bt
}

func classifyBlock(status int, h http.Header, body []byte) BlockType {
	if status == http.StatusForbidden || status == http.StatusServiceUnavailable {
		if h.Get("Cf-Ray") != "" || h.Get("Cf-Cache-Status") != "" ||
			strings.EqualFold(h.Get("Server"), "cloudflare") {
			return BlockCloudflare
		}
	}

	lower := strings.ToLower(string(body))
	for _, m := range challengeMarkers {
		if strings.Contains(lower, m) {
			return BlockCloudflare
		}
	}
	if strings.Contains(lower, "cloudflare") && strings.Contains(lower, "challenge") {
		return BlockCloudflare
	}
	for _, m := range captchaMarkers {
		if strings.Contains(lower, m) {
			return BlockCaptcha
		}
	}

	if len(body) < jsShellLimit {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return BlockJSShell
		}
		if strings.Contains(lower, `http-equiv="refresh"`) {
			return BlockJSShell
		}
	}
	return BlockNone
}
