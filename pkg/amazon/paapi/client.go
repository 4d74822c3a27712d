// Package paapi provides a minimal Product-Advertising-API client used to
// enrich Amazon links with display data (title, image, price, category). The
// single GetItems call is signed with AWS Signature Version 4.
package paapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"linkmint/pkg/domain"
	"linkmint/pkg/serrors"
)

// getItemsPath is the endpoint path for the GetItems operation.
const getItemsPath = "/paapi5/getitems"

// amzTarget is the operation identifier carried in X-Amz-Target.
const amzTarget = "com.amazon.paapi5.v1.ProductAdvertisingAPIv1.GetItems"

// resources are the item attributes requested from the API.
var resources = []string{ //nolint: gochecknoglobals
	"ItemInfo.Title",
	"Images.Primary.Large",
	"Offers.Listings.Price",
	"BrowseNodeInfo.BrowseNodes.Ancestor",
}

// Options configure the PA-API client. All values come from configuration.
type Options struct {
	AccessKey   string
	SecretKey   string
	PartnerTag  string
	Host        string
	Region      string
	Marketplace string
}

// Client talks to the PA-API GetItems endpoint. It is safe for concurrent
// use. Enrichment failures are soft: callers proceed with tag-only
// monetization and record the error string.
type Client struct {
	httpClient *http.Client
	opts       Options
	now        func() time.Time
}

// New constructs a Client using the provided http.Client and options.
func New(httpClient *http.Client, opts Options) *Client {
	return &Client{
		httpClient: httpClient,
		opts:       opts,
		now:        time.Now,
	}
}

// Enabled reports whether enrichment credentials are configured.
func (c *Client) Enabled() bool {
	return c.opts.AccessKey != "" && c.opts.SecretKey != ""
}

type getItemsRequest struct {
	ItemIds     []string `json:"ItemIds"`
	Resources   []string `json:"Resources"`
	PartnerTag  string   `json:"PartnerTag"`
	PartnerType string   `json:"PartnerType"`
	Marketplace string   `json:"Marketplace"`
}

type browseNode struct {
	DisplayName string      `json:"DisplayName"`
	Ancestor    *browseNode `json:"Ancestor"`
}

type getItemsResponse struct {
	ItemsResult struct {
		Items []struct {
			ASIN     string `json:"ASIN"`
			ItemInfo struct {
				Title struct {
					DisplayValue string `json:"DisplayValue"`
				} `json:"Title"`
			} `json:"ItemInfo"`
			Images struct {
				Primary struct {
					Large struct {
						URL string `json:"URL"`
					} `json:"Large"`
				} `json:"Primary"`
			} `json:"Images"`
			Offers struct {
				Listings []struct {
					Price struct {
						DisplayAmount string `json:"DisplayAmount"`
					} `json:"Price"`
				} `json:"Listings"`
			} `json:"Offers"`
			BrowseNodeInfo struct {
				BrowseNodes []browseNode `json:"BrowseNodes"`
			} `json:"BrowseNodeInfo"`
		} `json:"Items"`
	} `json:"ItemsResult"`
}

// GetItems fetches product facts for one ASIN. A non-200 status, malformed
// JSON or an empty Items array yields a semantic error; the caller degrades
// to tag-only monetization.
func (c *Client) GetItems(ctx context.Context, asin string) (*domain.ProductFacts, error) {
	body, err := json.Marshal(getItemsRequest{
		ItemIds:     []string{asin},
		Resources:   resources,
		PartnerTag:  c.opts.PartnerTag,
		PartnerType: "Associates",
		Marketplace: c.opts.Marketplace,
	})
	if err != nil {
		return nil, fmt.Errorf("could not marshal request: %w", err)
	}

	payloadHash := HashPayload(body)
	amzDate := c.now().UTC().Format(amzDateLayout)

	req, err := http.NewRequestWithContext(ctx,
		http.MethodPost,
		"https://"+c.opts.Host+getItemsPath,
		bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}

	signed := SignInputs{
		Method: http.MethodPost,
		Path:   getItemsPath,
		Headers: map[string]string{
			"content-encoding": "amz-1.0",
			"content-type":     "application/json; charset=utf-8",
			"host":             c.opts.Host,
			"x-amz-date":       amzDate,
			"x-amz-target":     amzTarget,
		},
		PayloadHash: payloadHash,
	}

	req.Header.Set("Content-Encoding", "amz-1.0")
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("X-Amz-Date", amzDate)
	req.Header.Set("X-Amz-Target", amzTarget)
	req.Header.Set("X-Amz-Content-Sha256", payloadHash)
	req.Header.Set("Authorization",
		Authorization(c.opts.AccessKey, c.opts.SecretKey, c.opts.Region, amzDate, signed))
	req.Host = c.opts.Host

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrEnrichmentFailed, err, "paapi request failed")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrEnrichmentFailed, err, "could not read response body")
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, serrors.With(serrors.ErrRateLimited, "paapi rate limited: %s", strings.TrimSpace(string(b)))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, serrors.With(serrors.ErrEnrichmentFailed,
			"paapi status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var decoded getItemsResponse
	if err := json.Unmarshal(b, &decoded); err != nil {
		return nil, serrors.Wrap(serrors.ErrMalformedResponse, err, "could not decode paapi response")
	}
	if len(decoded.ItemsResult.Items) == 0 {
		return nil, serrors.With(serrors.ErrEnrichmentFailed, "no items returned for %s", asin)
	}

	item := decoded.ItemsResult.Items[0]
	facts := &domain.ProductFacts{
		ASIN:         asin,
		Title:        item.ItemInfo.Title.DisplayValue,
		ImageURL:     item.Images.Primary.Large.URL,
		CategoryPath: categoryPath(item.BrowseNodeInfo.BrowseNodes),
	}
	if len(item.Offers.Listings) > 0 {
		facts.Price = item.Offers.Listings[0].Price.DisplayAmount
	}

	return facts, nil
}

// categoryPath picks the deepest ancestor chain among the returned browse
// nodes and joins it root-first with " > ".
func categoryPath(nodes []browseNode) string {
	var best []string
	for i := range nodes {
		var chain []string
		for n := &nodes[i]; n != nil; n = n.Ancestor {
			if name := strings.TrimSpace(n.DisplayName); name != "" {
				chain = append(chain, name)
			}
		}
		if len(chain) > len(best) {
			best = chain
		}
	}
	if len(best) == 0 {
		return ""
	}

	// chain was collected leaf-first; render root-first
	out := make([]string, 0, len(best))
	for i := len(best) - 1; i >= 0; i-- {
		out = append(out, best[i])
	}

	return strings.Join(out, " > ")
}
