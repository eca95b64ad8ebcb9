package classifier

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/cyberveli/internal/domain/classify"
	"github.com/bryanwahyu/cyberveli/internal/domain/history"
)

func TestClassify_PostsMultipartAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "cat.jpeg", hdr.Filename)
		assert.Equal(t, []byte{0xff, 0xd8, 0xff}, data)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"payload_classification": "UERD",
			"iqa_score": 0.82,
			"class_probabilities": {"UERD": 0.7, "clean": 0.2, "JMiPOD": 0.1},
			"filtered_images": {"srm": "AAAA", "dct": "data:image/png;base64,BBBB"}
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/predict", 0)
	got, err := c.Classify(context.Background(), "cat.jpeg", []byte{0xff, 0xd8, 0xff})
	require.NoError(t, err)

	want := &classify.Result{
		Label:         "UERD",
		IQAScore:      0.82,
		Probabilities: map[string]float64{"UERD": 0.7, "clean": 0.2, "JMiPOD": 0.1},
		FilteredImages: []history.FilteredImage{
			{Name: "dct", DataURI: "data:image/png;base64,BBBB"},
			{Name: "srm", DataURI: "data:image/jpeg;base64,AAAA"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Classify() mismatch (-want +got):\n%s", diff)
	}
}

func TestClassify_Non2xxIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, 0).Classify(context.Background(), "a.jpeg", []byte("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, classify.ErrUnavailable)
	assert.Contains(t, err.Error(), "503")
}

func TestClassify_MissingLabelIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"iqa_score": 0.5}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, 0).Classify(context.Background(), "a.jpeg", []byte("x"))
	assert.ErrorIs(t, err, classify.ErrUnavailable)
}

func TestCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	assert.NoError(t, NewClient(srv.URL+"/predict?x=1", 0).Check(context.Background()))
}
