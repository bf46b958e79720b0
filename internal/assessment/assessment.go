// Package assessment extracts display details from catalog page text.
//
// The patterns below match the plain-text rendering of catalog product pages:
//
//	duration     "Approximate Completion Time in minutes = 30" (optionally "= max 30")
//	test type    "Test Type: Knowledge & Skills Remote Testing: ..." (text up to Remote/Product)
//	remote       "Remote Testing: Yes"
//	description  text between "Description" and "Job levels"
//
// Any field that cannot be found is NotAvailable.
package assessment

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

const (
	NotAvailable = "N/A"
	// UnknownTitle is shown for records without a title.
	UnknownTitle = "Unknown Assessment"

	catalogURL          = "https://www.shl.com/solutions/products/product-catalog/view/%s/"
	fallbackDescription = 300
)

var (
	durationPattern = regexp.MustCompile(`Approximate Completion Time in minutes = (?:max )?(\d+)`)
	testTypePattern = regexp.MustCompile(`Test Type: ([\w\s]+?)(?:Remote|Product)`)
	remotePattern   = regexp.MustCompile(`Remote Testing: ([\w\s]+)`)
)

// Details is the card data shown for a search result.
type Details struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Duration    string `json:"duration"`
	TestType    string `json:"test_type"`
	Remote      string `json:"remote"`
	Adaptive    string `json:"adaptive"`
	Description string `json:"description"`
}

// Link is one entry of the curated links file.
type Link struct {
	Name          string `json:"name"`
	URL           string `json:"url"`
	AdaptiveIRT   string `json:"adaptive_irt"`
	TestType      string `json:"test_type"`
	RemoteTesting string `json:"remote_testing"`
	Duration      string `json:"duration"`
}

// Links indexes curated entries by trimmed name.
type Links map[string]Link

// LoadLinks reads the links file. A missing file yields an empty set.
func LoadLinks(path string) (Links, error) {
	if path == "" {
		return Links{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Links{}, nil
		}
		return nil, fmt.Errorf("read links: %w", err)
	}
	var entries []Link
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode links: %w", err)
	}
	links := make(Links, len(entries))
	for _, l := range entries {
		links[strings.TrimSpace(l.Name)] = l
	}
	return links, nil
}

// CleanTitle strips the site suffix from a page title.
func CleanTitle(title string) string {
	return strings.TrimSpace(strings.ReplaceAll(title, " | SHL", ""))
}

// Parse extracts details from content. Curated links override parsed values
// unless they are empty or NotAvailable.
func Parse(content, urlSlug, title string, links Links) Details {
	if title == "" {
		title = UnknownTitle
	}
	d := Details{
		Title:       title,
		URL:         fmt.Sprintf(catalogURL, urlSlug),
		Duration:    NotAvailable,
		TestType:    NotAvailable,
		Remote:      NotAvailable,
		Adaptive:    "No",
		Description: description(content),
	}
	if m := durationPattern.FindStringSubmatch(content); m != nil {
		d.Duration = m[1] + " minutes"
	}
	if m := testTypePattern.FindStringSubmatch(content); m != nil {
		d.TestType = strings.TrimSpace(m[1])
	}
	if m := remotePattern.FindStringSubmatch(content); m != nil {
		d.Remote = strings.TrimSpace(m[1])
	}

	link, ok := links[CleanTitle(title)]
	if !ok {
		return d
	}
	if link.AdaptiveIRT != "" {
		d.Adaptive = link.AdaptiveIRT
	}
	if link.URL != "" {
		d.URL = link.URL
	}
	override(&d.TestType, link.TestType)
	override(&d.Remote, link.RemoteTesting)
	override(&d.Duration, link.Duration)
	return d
}

func override(dst *string, v string) {
	if v != "" && v != NotAvailable {
		*dst = v
	}
}

func description(content string) string {
	start := strings.Index(content, "Description")
	end := strings.Index(content, "Job levels")
	if start != -1 && end != -1 {
		start += len("Description")
		if end < start {
			return ""
		}
		return strings.TrimSpace(content[start:end])
	}
	r := []rune(content)
	if len(r) > fallbackDescription {
		r = r[:fallbackDescription]
	}
	return string(r) + "..."
}
