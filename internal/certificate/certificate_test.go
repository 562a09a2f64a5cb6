package certificate

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/gokatarajesh/quiz-pool/internal/logging"
	"github.com/gokatarajesh/quiz-pool/internal/question"
)

func TestCertificatePercent(t *testing.T) {
	assert.Equal(t, 0, Certificate{Score: 5, Total: 0}.Percent())
	assert.Equal(t, 75, Certificate{Score: 60, Total: 80}.Percent())
	assert.Equal(t, 100, Certificate{Score: 80, Total: 80}.Percent())
	// 1/8 = 12.5 rounds half to even
	assert.Equal(t, 12, Certificate{Score: 1, Total: 8}.Percent())
}

func TestCertificateFileName(t *testing.T) {
	assert.Equal(t, "dog-certificate-Rex.png", Certificate{Name: "Rex"}.FileName())
	assert.Equal(t, "dog-certificate-a-b.png", Certificate{Name: "a/b"}.FileName())
}

func TestRendererProducesPNG(t *testing.T) {
	out, err := NewRenderer("").Render(Certificate{
		Name:     "Bella",
		Level:    "U10",
		Mode:     "quiz",
		Score:    18,
		Total:    20,
		IssuedAt: time.Date(2026, 9, 1, 15, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 1190, img.Bounds().Dx())
	assert.Equal(t, 1684, img.Bounds().Dy())
}

func TestRendererMissingFont(t *testing.T) {
	_, err := NewRenderer("/nonexistent/font.ttf").Render(Certificate{Name: "x"})
	assert.ErrorContains(t, err, "load certificate font")
}

type capturedMail struct {
	addr string
	from string
	to   []string
	msg  []byte
}

func TestMailerSendCertificate(t *testing.T) {
	var got capturedMail
	m := NewMailer(EmailConfig{SMTPHost: "smtp.example.com", SMTPUsername: "u", SMTPPassword: "p"}, zerolog.New(io.Discard))
	m.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		got = capturedMail{addr: addr, from: from, to: to, msg: msg}
		return nil
	}
	payload := bytes.Repeat([]byte{0x89, 'P', 'N', 'G'}, 50)

	err := m.SendCertificate(context.Background(), "kid@example.com", Certificate{Name: "Max", Level: "U10"}, payload)
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", got.addr)
	assert.Equal(t, "quiz@localhost", got.from)
	assert.Equal(t, []string{"kid@example.com"}, got.to)

	msg, err := mail.ReadMessage(bytes.NewReader(got.msg))
	require.NoError(t, err)
	assert.Equal(t, "kid@example.com", msg.Header.Get("To"))
	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mediaType)

	mr := multipart.NewReader(msg.Body, params["boundary"])
	text, err := mr.NextPart()
	require.NoError(t, err)
	body, _ := io.ReadAll(text)
	assert.Contains(t, string(body), "Hi Max,")

	attachment, err := mr.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "dog-certificate-Max.png", attachment.FileName())
}

func TestMailerNotConfigured(t *testing.T) {
	m := NewMailer(EmailConfig{SMTPHost: "smtp.example.com"}, zerolog.New(io.Discard))
	assert.False(t, m.Configured())
	assert.Error(t, m.SendCertificate(context.Background(), "a@b.c", Certificate{}, nil))
}

type stubRenderer struct {
	got Certificate
	err error
}

func (s *stubRenderer) Render(c Certificate) ([]byte, error) {
	s.got = c
	return []byte("png-bytes"), s.err
}

type stubMailer struct {
	configured bool
	err        error
	sentTo     string
}

func (s *stubMailer) Configured() bool { return s.configured }

func (s *stubMailer) SendCertificate(_ context.Context, to string, _ Certificate, _ []byte) error {
	s.sentTo = to
	return s.err
}

func newTestHandler(r *stubRenderer, m *stubMailer, limiter *rate.Limiter) *HTTPHandler {
	h := NewHTTPHandler(r, m, limiter, question.DefaultLevels, zerolog.New(io.Discard))
	h.now = func() time.Time { return time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC) }
	return h
}

func post(h *HTTPHandler, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.HandleCreate(rec, httptest.NewRequest(http.MethodPost, "/v1/certificate", strings.NewReader(body)))
	return rec
}

func TestHandleCreateDownloadWithDefaults(t *testing.T) {
	r := &stubRenderer{}
	rec := post(newTestHandler(r, &stubMailer{}, nil), `{"level": "nope", "score": 12}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "dog-certificate-Dog Fan.png")
	assert.Equal(t, "png-bytes", rec.Body.String())
	assert.Equal(t, Certificate{
		Name:     "Dog Fan",
		Level:    "U10",
		Mode:     "quiz",
		Score:    12,
		Total:    80,
		IssuedAt: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
	}, r.got)
}

func TestHandleCreateSMTPNotConfigured(t *testing.T) {
	rec := post(newTestHandler(&stubRenderer{}, &stubMailer{}, nil), `{"name": "Ada", "email": "ada@example.com"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok": false, "error": "SMTP not configured on server."}`, rec.Body.String())
}

func TestHandleCreateEmailed(t *testing.T) {
	m := &stubMailer{configured: true}
	rec := post(newTestHandler(&stubRenderer{}, m, nil), `{"name": "Ada", "email": " ada@example.com ", "total": 0}`)

	assert.JSONEq(t, `{"ok": true}`, rec.Body.String())
	assert.Equal(t, "ada@example.com", m.sentTo)
}

func TestHandleCreateEmailFailure(t *testing.T) {
	m := &stubMailer{configured: true, err: errors.New("send email: 535 auth failed")}
	rec := post(newTestHandler(&stubRenderer{}, m, nil), `{"email": "ada@example.com"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok": false, "error": "send email: 535 auth failed"}`, rec.Body.String())
}

func TestHandleCreateValidation(t *testing.T) {
	h := newTestHandler(&stubRenderer{}, &stubMailer{configured: true}, nil)

	assert.Equal(t, http.StatusBadRequest, post(h, `{`).Code)
	assert.Equal(t, http.StatusBadRequest, post(h, `{"score": -1}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(h, `{"total": -3}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(h, `{"email": "not an address\r\nBcc: x@y.z"}`).Code)
}

func TestHandleCreateRateLimited(t *testing.T) {
	h := newTestHandler(&stubRenderer{}, &stubMailer{}, rate.NewLimiter(0, 1))

	assert.Equal(t, http.StatusOK, post(h, `{}`).Code)
	rec := post(h, `{}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestHandleCreateRenderFailure(t *testing.T) {
	rec := post(newTestHandler(&stubRenderer{err: errors.New("bad font")}, &stubMailer{}, nil), `{}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleCreateRenderFailureLogsThroughRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	h := newTestHandler(&stubRenderer{err: errors.New("bad font")}, &stubMailer{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/certificate", strings.NewReader(`{}`))
	req = req.WithContext(logging.IntoContext(req.Context(), zerolog.New(&buf).With().Str("request_id", "r-2").Logger()))
	rec := httptest.NewRecorder()
	h.HandleCreate(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), `"request_id":"r-2"`)
	assert.Contains(t, buf.String(), "certificate render failed")
}
