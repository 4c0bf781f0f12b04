package stockphoto_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/DMarby/stockphotos/internal/logger"
	"github.com/DMarby/stockphotos/internal/stockphoto"
	"github.com/DMarby/stockphotos/internal/tracing/test"
	"go.uber.org/zap"
)

const token = "secret"

func newServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/categories/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"str_id":"health","display_name":"Health","popularity":2},{"str_id":"health-teeth","display_name":"Teeth","popularity":1.5}]`)
	})
	mux.HandleFunc("/api/v1/stock_photos/category/health-teeth/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"count":2,"results":[{"id":1,"url":"https://example.com/1.jpg"},{"id":2}],"parent_category":"health"}`)
	})
	mux.HandleFunc("/api/v1/stock_photos/category/empty/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"count":0,"results":[],"parent_category":null}`)
	})
	mux.HandleFunc("/api/v1/stock_photos/category/broken/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>`)
	})

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("wrong accept header %q", r.Header.Get("Accept"))
		}

		if r.Header.Get("Authorization") != "Token "+token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		if r.URL.EscapedPath() == "/api/v1/stock_photos/category/a%20b/" {
			fmt.Fprint(w, `{"count":0,"results":[]}`)
			return
		}

		mux.ServeHTTP(w, r)
	}))
}

func TestClient(t *testing.T) {
	log := logger.New(zap.FatalLevel)
	defer log.Sync()

	ctx := context.Background()
	ts := newServer(t)
	defer ts.Close()

	client := stockphoto.New(stockphoto.Config{
		BaseURL: ts.URL + "/api/v1",
		Token:   token,
		Timeout: time.Second,
	}, test.Tracer(log))

	t.Run("lists categories", func(t *testing.T) {
		categories, err := client.Categories(ctx)
		if err != nil {
			t.Fatal(err)
		}

		expected := []stockphoto.Category{
			{ID: "health", DisplayName: "Health", Popularity: 2},
			{ID: "health-teeth", DisplayName: "Teeth", Popularity: 1.5},
		}
		if !reflect.DeepEqual(categories, expected) {
			t.Fatalf("wrong categories %+v", categories)
		}
	})

	t.Run("lists images", func(t *testing.T) {
		list, err := client.Images(ctx, "health-teeth")
		if err != nil {
			t.Fatal(err)
		}

		if list.Count != 2 || len(list.Results) != 2 || list.ParentCategory != "health" {
			t.Fatalf("wrong list %+v", list)
		}

		if string(list.Results[0]) != `{"id":1,"url":"https://example.com/1.jpg"}` {
			t.Fatalf("results not passed through: %s", list.Results[0])
		}
	})

	t.Run("lists images without a parent", func(t *testing.T) {
		list, err := client.Images(ctx, "empty")
		if err != nil {
			t.Fatal(err)
		}

		if list.Count != 0 || list.ParentCategory != "" {
			t.Fatalf("wrong list %+v", list)
		}
	})

	t.Run("escapes category ids", func(t *testing.T) {
		if _, err := client.Images(ctx, "a b"); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("returns status errors", func(t *testing.T) {
		_, err := client.Images(ctx, "nonexistant")

		var statusErr *stockphoto.StatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("wrong error %v", err)
		}

		if statusErr.Code != http.StatusNotFound {
			t.Fatalf("wrong status code %d", statusErr.Code)
		}
	})

	t.Run("returns malformed response errors", func(t *testing.T) {
		_, err := client.Images(ctx, "broken")
		if !errors.Is(err, stockphoto.ErrMalformedResponse) {
			t.Fatalf("wrong error %v", err)
		}
	})
}

func TestClientUnauthorized(t *testing.T) {
	log := logger.New(zap.FatalLevel)
	defer log.Sync()

	ts := newServer(t)
	defer ts.Close()

	client := stockphoto.New(stockphoto.Config{BaseURL: ts.URL + "/api/v1/", Token: "wrong"}, test.Tracer(log))

	_, err := client.Categories(context.Background())

	var statusErr *stockphoto.StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusUnauthorized {
		t.Fatalf("wrong error %v", err)
	}
}

func TestClientTransportError(t *testing.T) {
	log := logger.New(zap.FatalLevel)
	defer log.Sync()

	ts := newServer(t)
	ts.Close()

	client := stockphoto.New(stockphoto.Config{BaseURL: ts.URL, Token: token}, test.Tracer(log))

	if _, err := client.Categories(context.Background()); err == nil {
		t.Fatal("no error")
	}
}

func TestClientRateLimit(t *testing.T) {
	log := logger.New(zap.FatalLevel)
	defer log.Sync()

	ts := newServer(t)
	defer ts.Close()

	client := stockphoto.New(stockphoto.Config{BaseURL: ts.URL + "/api/v1", Token: token, RequestsPerSecond: 0.001}, test.Tracer(log))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// The first request uses the burst, the second has to wait far longer than the deadline
	if _, err := client.Categories(ctx); err != nil {
		t.Fatal(err)
	}

	if _, err := client.Categories(ctx); err == nil {
		t.Fatal("no error")
	}
}
