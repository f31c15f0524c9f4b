package backend

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/vaughan0/go-ini"
)

// FeedDescriptor names a feed source. The configured list is fixed at startup and its order defines the indexes
// accepted by FeedLoader.
type FeedDescriptor struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type HTTPConfig struct {
	ListenAddress string
	ListenPort    string
	StaticURL     string
}

type FetchConfig struct {
	Timeout       time.Duration
	MaxConcurrent int
}

const feedSectionPrefix = "feed "

func LoadConfig(path string) (ini.File, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("Invalid config path: %v", err)
	}

	file, err := ini.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("Failed to load config file: %v", err)
	}

	return file, nil
}

// LoadFeeds reads the "feed N" sections in index order and validates the result.
func LoadFeeds(conf ini.File) ([]FeedDescriptor, error) {
	var indexes []int
	for name := range conf {
		if !strings.HasPrefix(name, feedSectionPrefix) {
			continue
		}

		suffix := strings.TrimPrefix(name, feedSectionPrefix)
		n, err := strconv.Atoi(suffix)
		if err != nil || n < 0 || strconv.Itoa(n) != suffix {
			return nil, &ConfigurationError{Index: -1, Msg: fmt.Sprintf("bad section name %q", name)}
		}
		indexes = append(indexes, n)
	}
	sort.Ints(indexes)

	feeds := make([]FeedDescriptor, 0, len(indexes))
	for i, n := range indexes {
		if n != i {
			return nil, &ConfigurationError{Index: i, Msg: "is missing"}
		}

		section := conf[fmt.Sprintf("%s%d", feedSectionPrefix, n)]
		feeds = append(feeds, FeedDescriptor{Name: section["name"], URL: section["url"]})
	}

	if err := ValidateFeeds(feeds); err != nil {
		return nil, err
	}

	return feeds, nil
}

// ValidateFeeds checks that there is at least one feed and that every feed has a name and a url.
func ValidateFeeds(feeds []FeedDescriptor) error {
	if len(feeds) == 0 {
		return &ConfigurationError{Index: -1, Msg: "no feeds configured"}
	}

	for i, f := range feeds {
		if f.URL == "" {
			return &ConfigurationError{Index: i, Field: "url", Msg: "is empty"}
		}
		if f.Name == "" {
			return &ConfigurationError{Index: i, Field: "name", Msg: "is empty"}
		}
	}

	return nil
}

func LoadFetchConfig(conf ini.File) (FetchConfig, error) {
	config := FetchConfig{
		Timeout:       60 * time.Second,
		MaxConcurrent: 4,
	}

	if s, ok := conf.Get("fetch", "timeout"); ok {
		d, err := time.ParseDuration(s)
		if err != nil {
			return config, fmt.Errorf("Bad fetch timeout: %v", err)
		}
		config.Timeout = d
	}

	if s, ok := conf.Get("fetch", "max_concurrent"); ok {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return config, fmt.Errorf("Bad fetch max_concurrent: %q", s)
		}
		config.MaxConcurrent = n
	}

	return config, nil
}
