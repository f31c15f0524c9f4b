package backend

import (
	"html"
	"io"
	"net/url"

	"github.com/jackc/feedreader/backend/data"
)

// RenderEntries writes one .entry element per feed item.
func RenderEntries(writer io.Writer, feed *data.ParsedFeed) (err error) {
	for _, item := range feed.Items {
		title := item.Title
		if title == "" {
			title = item.URL
		}

		if linkURL, ok := safeLinkURL(item.URL); ok {
			io.WriteString(writer, `<a class="entry-link" href="`)
			io.WriteString(writer, html.EscapeString(linkURL))
			io.WriteString(writer, `">`)
		} else {
			io.WriteString(writer, `<a class="entry-link">`)
		}
		io.WriteString(writer, `
  <article class="entry">
    <h2>`)
		io.WriteString(writer, html.EscapeString(title))
		io.WriteString(writer, `</h2>
`)
		if item.Summary != "" {
			io.WriteString(writer, `    <p>`)
			io.WriteString(writer, html.EscapeString(item.Summary))
			io.WriteString(writer, `</p>
`)
		}
		if !item.PublicationTime.IsZero() {
			io.WriteString(writer, `    <time datetime="`)
			io.WriteString(writer, item.PublicationTime.UTC().Format("2006-01-02T15:04:05Z07:00"))
			io.WriteString(writer, `">`)
			io.WriteString(writer, html.EscapeString(item.PublicationTime.Format("January 2, 2006")))
			io.WriteString(writer, `</time>
`)
		}
		_, err = io.WriteString(writer, `  </article>
</a>
`)
		if err != nil {
			return err
		}
	}

	return nil
}

// safeLinkURL accepts only absolute http and https URLs. Anything else from a feed is rendered without a link.
func safeLinkURL(s string) (string, bool) {
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	return s, true
}
