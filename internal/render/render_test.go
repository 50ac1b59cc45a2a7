package render

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/yanqian/ask-console/internal/domain/page"
)

func TestPanel_WarningPrecedesAnswer(t *testing.T) {
	doc := renderPanel(t, page.Panel{State: page.StateSuccess, Warning: "Uses inference.", Answer: "Line one\nLine two"})

	blocks := doc.Find("div")
	require.Equal(t, 2, blocks.Length())
	require.True(t, blocks.Eq(0).HasClass("warning-message"))
	require.True(t, blocks.Eq(1).HasClass("answer-message"))
	require.Equal(t, "Note: Uses inference.", blocks.Eq(0).Text())
	require.Equal(t, 1, doc.Find(".answer-message br").Length())
}

func TestPanel_NoWarningBlockWhenAbsent(t *testing.T) {
	doc := renderPanel(t, page.Panel{State: page.StateSuccess, Answer: "Plain"})

	require.Equal(t, 0, doc.Find(".warning-message").Length())
	require.Equal(t, "Plain", doc.Find(".answer-message").Text())
	require.Equal(t, 0, doc.Find(".links-container").Length())
}

func TestPanel_LinksOpenInNewTabInOrder(t *testing.T) {
	doc := renderPanel(t, page.Panel{
		State:  page.StateSuccess,
		Answer: "See below.",
		Links: []page.Link{
			{URL: "https://first.example/a", Text: "First"},
			{URL: "https://second.example/b", Text: "Second"},
		},
	})

	anchors := doc.Find(".links-container a")
	require.Equal(t, 2, anchors.Length())
	for i, want := range []string{"First", "Second"} {
		a := anchors.Eq(i)
		require.Equal(t, want, a.Text())
		target, _ := a.Attr("target")
		rel, _ := a.Attr("rel")
		require.Equal(t, "_blank", target)
		require.Equal(t, "noopener noreferrer", rel)
	}
	href, _ := anchors.Eq(1).Attr("href")
	require.Equal(t, "https://second.example/b", href)
}

func TestPanel_EscapesBackendMarkup(t *testing.T) {
	html, err := Panel(page.Panel{
		State:  page.StateSuccess,
		Answer: "<script>alert(1)</script>",
		Links:  []page.Link{{URL: "javascript:alert(1)", Text: "bad"}},
	})
	require.NoError(t, err)
	require.NotContains(t, string(html), "<script>")
	require.NotContains(t, string(html), "javascript:alert")
}

func TestPanel_LoadingAndError(t *testing.T) {
	loading := renderPanel(t, page.Panel{State: page.StateLoading})
	require.Equal(t, 1, loading.Find(".loading-spinner").Length())

	failed := renderPanel(t, page.Panel{State: page.StateError, Error: "Server responded with 500: boom"})
	require.Equal(t, "Server responded with 500: boom", failed.Find(".error-message").Text())

	idle, err := Panel(page.Panel{State: page.StateIdle})
	require.NoError(t, err)
	require.Empty(t, strings.TrimSpace(string(idle)))
}

func TestOptions_PreselectsSelected(t *testing.T) {
	html, err := Options([]page.ResponseTypeOption{
		{Name: "Detailed", About: "An in-depth and thorough answer."},
		{Name: "Concise", About: "The most direct answer possible."},
	}, "Detailed")
	require.NoError(t, err)

	doc := parse(t, string(html))
	radios := doc.Find("input[type=radio][name=responseType]")
	require.Equal(t, 2, radios.Length())

	id, _ := radios.Eq(1).Attr("id")
	require.Equal(t, "responseType_1", id)
	_, firstChecked := radios.Eq(0).Attr("checked")
	_, secondChecked := radios.Eq(1).Attr("checked")
	require.True(t, firstChecked)
	require.False(t, secondChecked)

	require.Equal(t, "Detailed", doc.Find(".response-type-name").First().Text())
	require.Equal(t, "The most direct answer possible.", doc.Find(".response-type-about").Last().Text())
	forAttr, _ := doc.Find("label").Eq(1).Attr("for")
	require.Equal(t, "responseType_1", forAttr)
}

func TestIndex_CarriesPageContract(t *testing.T) {
	options, err := Options([]page.ResponseTypeOption{{Name: "Concise"}}, "Concise")
	require.NoError(t, err)
	raw, err := Index(IndexData{Title: "Ask", CSRFToken: "tok-1", Options: options})
	require.NoError(t, err)

	doc := parse(t, string(raw))
	for _, sel := range []string{"#questionForm", "#questionInput", "#response", "#responseTypeOptions", "#reloadConfig", "#reloadData", "#notice"} {
		require.Equal(t, 1, doc.Find(sel).Length(), sel)
	}
	csrf, _ := doc.Find("input[name=csrf_token]").Attr("value")
	require.Equal(t, "tok-1", csrf)
	require.Equal(t, 1, doc.Find(`#questionForm button[type=submit]`).Length())
	require.Equal(t, 1, doc.Find("#responseTypeOptions input[checked]").Length())

	trigger, _ := doc.Find("#questionInput").Attr("hx-trigger")
	require.Equal(t, "keydown[key=='Enter'&&!shiftKey]", trigger)

	script := doc.Find("head script").Text()
	require.Contains(t, script, "htmx:beforeRequest")
	require.Contains(t, script, `'<div class="loading-spinner"></div>'`)
	require.Contains(t, script, "evt.preventDefault()")
}

func TestNotice(t *testing.T) {
	html, err := Notice("Data reloaded successfully.")
	require.NoError(t, err)
	require.Equal(t, "Data reloaded successfully.", parse(t, string(html)).Find(".reload-message").Text())

	empty, err := Notice("")
	require.NoError(t, err)
	require.Empty(t, string(empty))
}

func renderPanel(t *testing.T, panel page.Panel) *goquery.Document {
	t.Helper()
	html, err := Panel(panel)
	require.NoError(t, err)
	return parse(t, string(html))
}

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}
