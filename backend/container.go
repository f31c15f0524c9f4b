package backend

import (
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// Container is the render target for feed entries. It holds the output of exactly one load at a time.
type Container struct {
	mutex sync.RWMutex
	html  string
}

// Replace discards the current content.
func (c *Container) Replace(html string) {
	c.mutex.Lock()
	c.html = html
	c.mutex.Unlock()
}

func (c *Container) HTML() string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.html
}

// Document parses the content wrapped in its .feed container element, as it appears on the page.
func (c *Container) Document() (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(`<div class="feed">` + c.HTML() + `</div>`))
}

// EntryCount returns the number of .entry elements inside the .feed element.
func (c *Container) EntryCount() int {
	doc, err := c.Document()
	if err != nil {
		return 0
	}
	return doc.Find(".feed .entry").Length()
}
