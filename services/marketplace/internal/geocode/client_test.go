package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPClientLookup(t *testing.T) {
	tests := []struct {
		name       string
		postcode   string
		status     int
		body       string
		wantPath   string
		wantCoords *Coordinates
		wantErr    bool
	}{
		{
			name:       "found",
			postcode:   "sw1a 1aa",
			status:     http.StatusOK,
			body:       `{"status":200,"result":{"postcode":"SW1A 1AA","latitude":51.501009,"longitude":-0.141588}}`,
			wantPath:   "/postcodes/SW1A1AA",
			wantCoords: &Coordinates{Latitude: 51.501009, Longitude: -0.141588},
		},
		{
			name:     "notFound",
			postcode: "ZZ99 9ZZ",
			status:   http.StatusNotFound,
			body:     `{"status":404,"error":"Postcode not found"}`,
			wantPath: "/postcodes/ZZ999ZZ",
		},
		{
			name:     "emptyResult",
			postcode: "E1 6AN",
			status:   http.StatusOK,
			body:     `{"status":200,"result":null}`,
			wantPath: "/postcodes/E16AN",
		},
		{
			name:     "serverError",
			postcode: "E1 6AN",
			status:   http.StatusInternalServerError,
			body:     `{}`,
			wantPath: "/postcodes/E16AN",
			wantErr:  true,
		},
		{
			name:     "invalidJSON",
			postcode: "E1 6AN",
			status:   http.StatusOK,
			body:     `not json`,
			wantPath: "/postcodes/E16AN",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != tt.wantPath {
					t.Errorf("request path = %q, want %q", r.URL.Path, tt.wantPath)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewHTTPClient(server.URL, time.Second)
			coords, err := client.Lookup(context.Background(), tt.postcode)

			if (err != nil) != tt.wantErr {
				t.Fatalf("Lookup() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantCoords == nil {
				if coords != nil {
					t.Errorf("Lookup() = %+v, want nil", coords)
				}
				return
			}
			if coords == nil || *coords != *tt.wantCoords {
				t.Errorf("Lookup() = %+v, want %+v", coords, tt.wantCoords)
			}
		})
	}
}

func TestHTTPClientLookupBlankPostcode(t *testing.T) {
	client := NewHTTPClient("http://127.0.0.1:0", time.Second)

	coords, err := client.Lookup(context.Background(), "   ")
	if err != nil || coords != nil {
		t.Errorf("Lookup(blank) = %v, %v; want nil, nil", coords, err)
	}
}

func TestClean(t *testing.T) {
	if got := Clean(" sw1a  1aa "); got != "SW1A1AA" {
		t.Errorf("Clean() = %q, want %q", got, "SW1A1AA")
	}
}
