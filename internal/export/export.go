// Package export renders notes as standalone HTML pages.
package export

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"regexp"
	"strings"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"

	"github.com/kuitang/colornote/internal/annotate"
	"github.com/kuitang/colornote/internal/notes"
)

// descriptionChars bounds the meta description taken from the body.
const descriptionChars = 160

// colorStyle is the only inline style an exported span may carry.
var colorStyle = regexp.MustCompile(`^color:#[0-9a-f]{6}$`)

var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("style").Matching(colorStyle).OnElements("span")
	return p
}

const documentTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <meta name="description" content="{{.Description}}">
    <meta property="og:title" content="{{.Title}}">
    <meta property="og:description" content="{{.Description}}">
    <meta property="og:type" content="article">
    <meta name="generator" content="colornote">

    <style>
        :root {
            --ink: #202124;
            --paper: #fffdf7;
            --rule: #e4e0d4;
            --muted: #6b6b6b;
        }

        @media (prefers-color-scheme: dark) {
            :root {
                --ink: #e8e6e3;
                --paper: #1c1b19;
                --rule: #3a3833;
                --muted: #a09c94;
            }
        }

        body {
            font-family: Georgia, 'Iowan Old Style', 'Times New Roman', serif;
            line-height: 1.7;
            color: var(--ink);
            background-color: var(--paper);
            max-width: 720px;
            margin: 0 auto;
            padding: 2.5rem 1.25rem;
        }

        header h1 {
            font-size: 1.8rem;
            margin: 0 0 0.25rem;
        }

        header time {
            color: var(--muted);
            font-size: 0.85rem;
        }

        .note-body {
            white-space: pre-wrap;
            overflow-wrap: anywhere;
            margin: 1.5rem 0;
        }

        figure {
            margin: 1.5rem 0;
        }

        figure img {
            max-width: 100%;
            height: auto;
            border-radius: 4px;
        }

        table {
            border-collapse: collapse;
            margin: 1.5rem 0;
            width: 100%;
        }

        th, td {
            border: 1px solid var(--rule);
            padding: 0.4em 0.8em;
            text-align: left;
            vertical-align: top;
        }

        th {
            font-weight: 600;
        }
    </style>
</head>
<body>
    <article>
        <header>
            <h1>{{.Title}}</h1>
            <time datetime="{{.Updated}}">{{.UpdatedLabel}}</time>
        </header>
        <div class="note-body">{{.Body}}</div>
        {{- range .Images}}
        <figure>{{.}}</figure>
        {{- end}}
        {{- range .Tables}}
        {{.}}
        {{- end}}
    </article>
</body>
</html>`

var document = template.Must(template.New("note").Parse(documentTemplate))

type documentData struct {
	Title        string
	Description  string
	Updated      string
	UpdatedLabel string
	Body         template.HTML
	Images       []template.HTML
	Tables       []template.HTML
}

// Document renders a note as a complete HTML page. imageURL maps an
// attachment key to a fetchable URL; images it has no URL for, and all
// images when it is nil, are left out.
func Document(n *notes.Note, imageURL func(key string) string) ([]byte, error) {
	data := documentData{
		Title:        displayTitle(n.Title),
		Description:  describe(n.Body),
		Updated:      n.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		UpdatedLabel: n.UpdatedAt.UTC().Format("January 2, 2006"),
		Body:         Segments(annotate.Project(n.Body, n.Spans)),
	}
	if imageURL != nil {
		for _, key := range n.Images {
			if u := imageURL(key); u != "" {
				data.Images = append(data.Images, Image(u))
			}
		}
	}
	for _, t := range n.Tables {
		data.Tables = append(data.Tables, Table(t.Markdown()))
	}

	var buf bytes.Buffer
	if err := document.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render note %s: %w", n.ID, err)
	}
	return buf.Bytes(), nil
}

// Segments renders projected text as escaped runs, colored runs wrapped in
// a span carrying only a color style.
func Segments(segments []annotate.Segment) template.HTML {
	var b strings.Builder
	for _, seg := range segments {
		text := html.EscapeString(seg.Text)
		if seg.Color == annotate.NoColor {
			b.WriteString(text)
			continue
		}
		fmt.Fprintf(&b, `<span style="color:%s">%s</span>`, seg.Color.Hex(), text)
	}
	return template.HTML(policy.Sanitize(b.String()))
}

// Table renders a markdown table to sanitized HTML.
func Table(md string) template.HTML {
	if strings.TrimSpace(md) == "" {
		return ""
	}
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	doc := p.Parse([]byte(md))
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	out := markdown.Render(doc, renderer)
	return template.HTML(policy.SanitizeBytes(out))
}

// Image renders an img element for url. Unsafe URLs are dropped by the
// sanitizer, leaving an empty result.
func Image(url string) template.HTML {
	tag := fmt.Sprintf(`<img src="%s" alt="" loading="lazy">`, html.EscapeString(url))
	return template.HTML(policy.Sanitize(tag))
}

func displayTitle(title string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	return "Untitled note"
}

func describe(body string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(body), "\n")
	r := []rune(strings.TrimSpace(line))
	if len(r) > descriptionChars {
		return string(r[:descriptionChars]) + "..."
	}
	return string(r)
}
