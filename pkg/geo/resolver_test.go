package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Armin247/Aliva/models"

	"github.com/stretchr/testify/assert"
)

func TestResolveFromCoordinates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.RawQuery, "latitude=")
		w.Write([]byte(`{"countryName":"Nigeria","city":"Lagos"}`))
	}))
	defer server.Close()

	r := NewResolverWithURL(server.URL)
	loc := &models.Location{Latitude: 6.5244, Longitude: 3.3792}

	detected := r.Resolve(context.Background(), http.Header{}, loc)
	assert.Equal(t, "Nigeria", detected.Country)
	assert.Equal(t, "Lagos", detected.City)
}

func TestResolveGeocodeFailureFallsBack(t *testing.T) {
	// 逆地理编码失败时退回客户端自报的字段
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	r := NewResolverWithURL(server.URL)
	loc := &models.Location{Latitude: 6.5, Longitude: 3.3, Country: "Ghana", City: "Accra"}

	detected := r.Resolve(context.Background(), http.Header{}, loc)
	assert.Equal(t, "Ghana", detected.Country)
	assert.Equal(t, "Accra", detected.City)
}

func TestResolveFromHeaders(t *testing.T) {
	r := NewResolver()

	header := http.Header{}
	header.Set("cf-ipcountry", "Kenya")
	header.Set("x-vercel-ip-city", "Nairobi")

	detected := r.Resolve(context.Background(), header, nil)
	assert.Equal(t, "Kenya", detected.Country)
	assert.Equal(t, "Nairobi", detected.City)
}

func TestResolveClientFieldsOverrideHeaders(t *testing.T) {
	r := NewResolver()

	header := http.Header{}
	header.Set("x-vercel-ip-country", "Kenya")

	detected := r.Resolve(context.Background(), header, &models.Location{Country: "India", City: "Pune"})
	assert.Equal(t, "India", detected.Country)
	assert.Equal(t, "Pune", detected.City)
}

func TestResolveNothingKnown(t *testing.T) {
	r := NewResolver()
	detected := r.Resolve(context.Background(), http.Header{}, nil)
	assert.Empty(t, detected.Country)
	assert.Empty(t, detected.City)
}

func TestResolveLocalityFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"countryName":"Mexico","city":"","locality":"Coyoacán"}`))
	}))
	defer server.Close()

	r := NewResolverWithURL(server.URL)
	detected := r.Resolve(context.Background(), http.Header{}, &models.Location{Latitude: 19.3, Longitude: -99.1})
	assert.Equal(t, "Mexico", detected.Country)
	assert.Equal(t, "Coyoacán", detected.City)
}
