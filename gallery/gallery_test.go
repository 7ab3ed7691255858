package gallery_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faceid/attendance-engine/gallery"
)

// =============================================================================
// INDEX
// =============================================================================

func TestIndex_Identify_KnownFace(t *testing.T) {
	// GIVEN: Two enrolled employees with orthogonal embeddings
	// WHEN: A query close to emp-1's embedding is identified
	// THEN: emp-1 comes back with a small distance

	idx := gallery.NewIndex(0.4)
	require.NoError(t, idx.Enroll("emp-1", "An Nguyen", []float32{1, 0, 0, 0}))
	require.NoError(t, idx.Enroll("emp-2", "Binh Tran", []float32{0, 1, 0, 0}))

	match, err := idx.Identify([]float32{0.99, 0.01, 0, 0})
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "emp-1", match.EmployeeID)
	assert.Equal(t, "An Nguyen", match.Name)
	assert.Less(t, match.Distance, 0.01)
}

func TestIndex_Identify_UnknownFace_NilNotError(t *testing.T) {
	// An orthogonal query has cosine distance 1.0, well past the 0.4
	// threshold. Unknown is a nil match, not an error.

	idx := gallery.NewIndex(0.4)
	require.NoError(t, idx.Enroll("emp-1", "An Nguyen", []float32{1, 0, 0, 0}))

	match, err := idx.Identify([]float32{0, 0, 1, 0})
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestIndex_Identify_EmptyIndex(t *testing.T) {
	idx := gallery.NewIndex(0.4)

	match, err := idx.Identify([]float32{1, 0, 0, 0})
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestIndex_Identify_EmptyEmbedding_Error(t *testing.T) {
	idx := gallery.NewIndex(0.4)
	require.NoError(t, idx.Enroll("emp-1", "An Nguyen", []float32{1, 0, 0, 0}))

	_, err := idx.Identify(nil)
	assert.Error(t, err)
}

func TestIndex_Remove(t *testing.T) {
	idx := gallery.NewIndex(0.4)
	require.NoError(t, idx.Enroll("emp-1", "An Nguyen", []float32{1, 0, 0, 0}))
	require.Equal(t, 1, idx.Len())

	idx.Remove("emp-1")
	assert.Equal(t, 0, idx.Len())

	match, err := idx.Identify([]float32{1, 0, 0, 0})
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestIndex_Enroll_ReplacesEmbedding(t *testing.T) {
	idx := gallery.NewIndex(0.4)
	require.NoError(t, idx.Enroll("emp-1", "An Nguyen", []float32{1, 0, 0, 0}))
	require.NoError(t, idx.Enroll("emp-1", "An Nguyen", []float32{0, 0, 0, 1}))

	assert.Equal(t, 1, idx.Len())

	match, err := idx.Identify([]float32{0, 0, 0, 1})
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "emp-1", match.EmployeeID)
}

func TestIndex_Enroll_DimensionMismatch_Rejected(t *testing.T) {
	idx := gallery.NewIndex(0.4)
	require.NoError(t, idx.Enroll("emp-1", "An Nguyen", []float32{1, 0, 0, 0}))

	err := idx.Enroll("emp-2", "Binh Tran", []float32{1, 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension mismatch")
	assert.Equal(t, 1, idx.Len())
}

func TestIndex_Identify_DimensionMismatch_ErrorNotPanic(t *testing.T) {
	// GIVEN: An index built over 4-dimensional embeddings
	// WHEN: A query of a different length is identified
	// THEN: The mismatch comes back as an error, never a panic

	idx := gallery.NewIndex(0.4)
	require.NoError(t, idx.Enroll("emp-1", "An Nguyen", []float32{1, 0, 0, 0}))

	_, err := idx.Identify([]float32{1, 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension mismatch")

	// The index stays usable for well-formed queries.
	match, err := idx.Identify([]float32{1, 0, 0, 0})
	require.NoError(t, err)
	require.NotNil(t, match)
}

func TestIndex_Remove_LastEmployee_ResetsDimension(t *testing.T) {
	idx := gallery.NewIndex(0.4)
	require.NoError(t, idx.Enroll("emp-1", "An Nguyen", []float32{1, 0, 0, 0}))
	idx.Remove("emp-1")

	// A fresh enrollment may pick a new dimension.
	require.NoError(t, idx.Enroll("emp-2", "Binh Tran", []float32{0, 1}))
	assert.Equal(t, 1, idx.Len())
}

// =============================================================================
// ROSTER
// =============================================================================

func TestRoster_Roundtrip(t *testing.T) {
	// GIVEN: A roster with two employees persisted to disk
	// WHEN: The file is loaded fresh
	// THEN: Both employees come back with their embeddings intact

	path := filepath.Join(t.TempDir(), "roster.json")

	r, err := gallery.LoadRoster(path)
	require.NoError(t, err)
	require.Equal(t, 0, r.Len())

	require.NoError(t, r.Add(gallery.Employee{ID: "emp-2", Name: "Binh Tran", Embedding: []float32{0, 1}}))
	require.NoError(t, r.Add(gallery.Employee{ID: "emp-1", Name: "An Nguyen", Embedding: []float32{1, 0}}))

	loaded, err := gallery.LoadRoster(path)
	require.NoError(t, err)
	require.Equal(t, 2, loaded.Len())

	list := loaded.List()
	assert.Equal(t, "emp-1", list[0].ID)
	assert.Equal(t, "emp-2", list[1].ID)
	assert.Equal(t, []float32{1, 0}, list[0].Embedding)
	assert.False(t, list[0].EnrolledAt.IsZero())
}

func TestRoster_Add_RequiresID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.json")
	r, err := gallery.LoadRoster(path)
	require.NoError(t, err)

	assert.Error(t, r.Add(gallery.Employee{Name: "No ID"}))
}

func TestRoster_Remove_UnknownID_NoOp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.json")
	r, err := gallery.LoadRoster(path)
	require.NoError(t, err)

	assert.NoError(t, r.Remove("ghost"))
}

func TestNewIndexFromRoster(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.json")
	r, err := gallery.LoadRoster(path)
	require.NoError(t, err)
	require.NoError(t, r.Add(gallery.Employee{ID: "emp-1", Name: "An Nguyen", Embedding: []float32{1, 0}}))

	idx, err := gallery.NewIndexFromRoster(r, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Len())

	match, err := idx.Identify([]float32{1, 0})
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "An Nguyen", match.Name)
}

// =============================================================================
// FACE SERVICE CLIENT
// =============================================================================

func TestFaceClient_Detect(t *testing.T) {
	// GIVEN: A stub embedding service answering POST /embed/face
	// WHEN: An image is submitted
	// THEN: The multipart upload carries the image and the detections decode

	var gotPath string
	var gotImage []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path

		f, _, err := r.FormFile("file")
		require.NoError(t, err)
		gotImage, err = io.ReadAll(f)
		require.NoError(t, err)

		json.NewEncoder(w).Encode(map[string]any{
			"faces": []map[string]any{
				{
					"face_index": 0,
					"bbox":       []float64{10, 20, 110, 140},
					"det_score":  0.98,
					"embedding":  []float32{0.1, 0.2, 0.3},
				},
			},
		})
	}))
	defer srv.Close()

	client := gallery.NewFaceClient(srv.URL)
	detections, err := client.Detect(context.Background(), []byte("fake-jpeg-bytes"))
	require.NoError(t, err)

	assert.Equal(t, "/embed/face", gotPath)
	assert.Equal(t, []byte("fake-jpeg-bytes"), gotImage)

	require.Len(t, detections, 1)
	assert.Equal(t, 0, detections[0].FaceIndex)
	assert.InDelta(t, 0.98, detections[0].Score, 1e-9)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, detections[0].Embedding)
}

func TestFaceClient_Detect_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := gallery.NewFaceClient(srv.URL)
	_, err := client.Detect(context.Background(), []byte("img"))
	assert.Error(t, err)
}
