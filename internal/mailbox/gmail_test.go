package mailbox

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xaenox/emo/internal/models"
)

func b64(s string) string { return base64.URLEncoding.EncodeToString([]byte(s)) }

func gmailServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/messages", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "from:ann invoice", r.URL.Query().Get("q"))
		assert.Equal(t, "2", r.URL.Query().Get("maxResults"))
		fmt.Fprint(w, `{"messages":[{"id":"m1"},{"id":"m2"}]}`)
	})
	mux.HandleFunc("/messages/m1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"id":"m1","snippet":"hi","payload":{
			"mimeType":"multipart/mixed",
			"headers":[{"name":"Subject","value":"Invoice"},{"name":"From","value":"Ann <ann@x.io>"},{"name":"Date","value":"Mon, 1 Dec 2025"}],
			"parts":[
				{"mimeType":"multipart/alternative","parts":[
					{"mimeType":"text/plain","body":{"data":"%s"}},
					{"mimeType":"text/html","body":{"data":"%s"}}
				]},
				{"mimeType":"application/pdf","filename":"invoice.pdf","body":{"attachmentId":"a1","size":2048}},
				{"mimeType":"text/plain","filename":"notes.txt","body":{"data":"%s","size":5}}
			]}}`, b64("Please pay by Friday."), b64("<p>html</p>"), b64("notes"))
	})
	mux.HandleFunc("/messages/m2", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"id":"m2","payload":{"mimeType":"text/html","body":{"data":"%s"}}}`,
			b64("<html><head><style>p{}</style></head><body><p>First&nbsp;line</p><p>Second<br>line</p></body></html>"))
	})
	mux.HandleFunc("/messages/m1/attachments/a1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"size":3,"data":"%s"}`, b64("pdf"))
	})
	return httptest.NewServer(mux)
}

func TestClient_Search(t *testing.T) {
	srv := gmailServer(t)
	defer srv.Close()

	c := NewWithHTTPClient(srv.Client(), srv.URL, zap.NewNop())
	emails, err := c.Search(context.Background(), "from:ann invoice", 2)
	require.NoError(t, err)
	require.Len(t, emails, 2)

	first := emails[0]
	assert.Equal(t, 1, first.Index)
	assert.Equal(t, "Invoice", first.Subject)
	assert.Equal(t, "Ann <ann@x.io>", first.From)
	assert.Equal(t, "Please pay by Friday.", first.Body)
	require.Len(t, first.Attachments, 2)
	assert.Equal(t, "invoice.pdf", first.Attachments[0].Filename)
	assert.Equal(t, []byte("notes"), first.Attachments[1].Inline)

	second := emails[1]
	assert.Equal(t, 2, second.Index)
	assert.Equal(t, "No Subject", second.Subject)
	assert.Equal(t, "Unknown", second.From)
	assert.Equal(t, "First line\nSecond\nline", second.Body)

	data, err := c.AttachmentData(context.Background(), "m1", first.Attachments[0])
	require.NoError(t, err)
	assert.Equal(t, []byte("pdf"), data)

	data, err = c.AttachmentData(context.Background(), "m1", first.Attachments[1])
	require.NoError(t, err)
	assert.Equal(t, []byte("notes"), data)

	_, err = c.AttachmentData(context.Background(), "m1", models.Attachment{Filename: "x"})
	assert.Error(t, err)
}

func TestClient_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "token expired", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewWithHTTPClient(srv.Client(), srv.URL, zap.NewNop()).Get(context.Background(), "x")
	assert.ErrorContains(t, err, "gmail error 401: token expired")
}

func TestNew_NotConnected(t *testing.T) {
	_, err := New(context.Background(), Config{}, zap.NewNop())
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = New(context.Background(), Config{CredentialsFile: "/nope/creds.json", TokenFile: "/nope/token.json"}, zap.NewNop())
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestBuildQuery(t *testing.T) {
	assert.Equal(t, "newer_than:1d from:ann emails ann today", BuildQuery("find emails from ann today"))
	assert.Equal(t, `"quarterly report" subject:budget`, BuildQuery(`"quarterly report" subject:budget`))
	assert.Equal(t, "invoice march", BuildQuery("show my invoice march"))
	assert.Equal(t, "to me", BuildQuery("to me"))
}

func TestExtractText(t *testing.T) {
	got, err := ExtractText("a.CSV", []byte("x,y\n1,2"))
	require.NoError(t, err)
	assert.Equal(t, "x,y\n1,2", got)

	got, err = ExtractText("page.html", []byte("<p>Hello</p><p>World</p>"))
	require.NoError(t, err)
	assert.Equal(t, "Hello\nWorld", got)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:r><w:t>Hello</w:t></w:r><w:r><w:t xml:space="preserve"> world</w:t></w:r></w:p>
<w:p></w:p>
<w:p><w:r><w:t>Second</w:t></w:r></w:p>
</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	got, err = ExtractText("doc.docx", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "Hello world\nSecond", got)

	_, err = ExtractText("scan.pdf", []byte("%PDF"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
