package middleware

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/blake2b"

	"github.com/ignatzorin/vix-backend/internal/interface/http/response"
	"github.com/ignatzorin/vix-backend/internal/pkg/apperror"
	"github.com/ignatzorin/vix-backend/internal/service"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	ReplayedHeader    = "Idempotent-Replayed"
	maxKeyLength      = 128
)

// fingerprint - хэш тела запроса: ключ нельзя переиспользовать с другими данными.
type fingerprint [blake2b.Size256]byte

type recordedResponse struct {
	request     fingerprint
	status      int
	contentType string
	body        []byte
}

// inFlight - метка запроса, который ещё выполняется.
type inFlight struct {
	request fingerprint
}

func keyReused() error {
	err := apperror.New(apperror.ErrCodeValidation, "Idempotency-Key уже использован с другим телом запроса")
	err.HTTPStatus = http.StatusUnprocessableEntity
	return err
}

func stillRunning() error {
	return apperror.New(apperror.ErrCodeConcurrencyConflict, "запрос с этим Idempotency-Key ещё выполняется")
}

type captureWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency повторяет сохранённый ответ на POST с тем же Idempotency-Key.
// Ответы 409, 429 и 5xx не сохраняются: после них запрос повторяют заново.
func Idempotency(cache *service.CacheService, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyHeader)
		if key == "" || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		if len(key) > maxKeyLength {
			response.BadRequest(c, "Idempotency-Key слишком длинный")
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			response.BadRequest(c, "не удалось прочитать тело запроса")
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		sum := fingerprint(blake2b.Sum256(body))

		cacheKey := "idem:" + Actor(c).UserID.String() + ":" + c.FullPath() + ":" + c.Request.URL.Path + ":" + key
		if cached, ok := cache.Get(cacheKey); ok {
			replay(c, cached, sum)
			return
		}
		if !cache.SetIfAbsent(cacheKey, inFlight{request: sum}, ttl) {
			if cached, ok := cache.Get(cacheKey); ok {
				replay(c, cached, sum)
				return
			}
			response.Error(c, stillRunning())
			return
		}

		// Метка снимается при любом выходе, в том числе при panic в обработчике.
		recorded := false
		defer func() {
			if !recorded {
				cache.Delete(cacheKey)
			}
		}()

		w := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		status := w.Status()
		if status < http.StatusInternalServerError && status != http.StatusConflict && status != http.StatusTooManyRequests {
			cache.Set(cacheKey, &recordedResponse{
				request:     sum,
				status:      status,
				contentType: w.Header().Get("Content-Type"),
				body:        w.buf.Bytes(),
			}, ttl)
			recorded = true
		}
	}
}

// replay отдаёт сохранённый ответ либо объясняет, почему повторить нельзя.
func replay(c *gin.Context, cached interface{}, sum fingerprint) {
	switch v := cached.(type) {
	case *recordedResponse:
		if v.request != sum {
			response.Error(c, keyReused())
			return
		}
		c.Header(ReplayedHeader, "true")
		c.Data(v.status, v.contentType, v.body)
		c.Abort()
	case inFlight:
		if v.request != sum {
			response.Error(c, keyReused())
			return
		}
		response.Error(c, stillRunning())
	default:
		response.Error(c, stillRunning())
	}
}
