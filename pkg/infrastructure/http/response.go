package http

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/WangYihang/storefront-detector/pkg/domain/entity"
)

// statusResponse is the body of GET /status/{domain}. Older deployments
// name the verdict isShopify or is_shopify.
type statusResponse struct {
	IsMatch        *bool  `json:"isMatch"`
	IsShopify      *bool  `json:"isShopify"`
	IsShopifySnake *bool  `json:"is_shopify"`
	Status         string `json:"status"`
	Reason         string `json:"reason"`
}

func (r statusResponse) isMatch() bool {
	for _, v := range []*bool{r.IsMatch, r.IsShopify, r.IsShopifySnake} {
		if v != nil {
			return *v
		}
	}
	return false
}

// statusFailed is the server's finished verdict when no storefront
// indicators were found. It is a definite negative, not a service error.
const statusFailed = "failed"

func parseStatus(s string) (entity.Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "complete", "completed", "succeeded", statusFailed:
		return entity.StatusComplete, nil
	case "in_progress", "pending":
		return entity.StatusInProgress, nil
	case "error":
		return entity.StatusError, nil
	case "":
		return "", fmt.Errorf("missing status")
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

func decodeStatus(body []byte) (entity.ClassificationResult, error) {
	var resp statusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return entity.ClassificationResult{}, err
	}

	status, err := parseStatus(resp.Status)
	if err != nil {
		return entity.ClassificationResult{}, err
	}

	isMatch := resp.isMatch()
	if strings.EqualFold(strings.TrimSpace(resp.Status), statusFailed) {
		isMatch = false
	}

	return entity.ClassificationResult{
		IsMatch: isMatch,
		Status:  status,
		Reason:  resp.Reason,
	}, nil
}
