package hibp

import (
	"context"
	"errors"
	"github.com/benbjohnson/clock"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testClient(baseURL string) *Client {
	// A budget of 1 turns any unexpected retry into a fast failure
	// instead of a hang on the mock clock.
	return NewClient(NewFetcher(clock.NewMock(), time.Second, 1), baseURL)
}

func TestClientRange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/range/5BAA6" {
			t.Errorf("path: %s, want: /range/5BAA6", r.URL.Path)
		}
		body := strings.Join([]string{
			"0018A45C4D1DEF81644B54AB7F969B88D65:1",
			"1e4c9b93f3f0682250b6cf8331b7ee68fd8:10437277",
			"malformed line",
			"00D4F6E8FA6EECAD2A3AA415EEC418D38EC:bad",
			"",
		}, "\r\n")
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	client := testClient(server.URL + "/range/")

	suffixes, err := client.Range(context.Background(), "5baa6")
	if err != nil {
		t.Fatalf("Range should not fail: %s", err)
	}
	if len(suffixes) != 2 {
		t.Fatalf("Range: %d suffixes, want: 2", len(suffixes))
	}
	if suffixes[0].Suffix != "0018A45C4D1DEF81644B54AB7F969B88D65" || suffixes[0].Count != 1 {
		t.Errorf("suffix 0: %+v", suffixes[0])
	}
	// parsed suffixes come back upper case no matter the response casing
	if suffixes[1].Suffix != "1E4C9B93F3F0682250B6CF8331B7EE68FD8" || suffixes[1].Count != 10437277 {
		t.Errorf("suffix 1: %+v", suffixes[1])
	}
}

func TestClientRangeEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := testClient(server.URL + "/range/")

	suffixes, err := client.Range(context.Background(), "5BAA6")
	if err != nil {
		t.Fatalf("Range should not fail: %s", err)
	}
	if suffixes != nil {
		t.Errorf("Range: %d suffixes, want none", len(suffixes))
	}
}

func TestClientRangeInvalidPrefix(t *testing.T) {
	client := testClient(DefaultBaseURL)
	cases := []string{"", "5BA", "5BAA61", "xyzzy"}

	for _, prefix := range cases {
		if _, err := client.Range(context.Background(), prefix); !errors.Is(err, ErrInvalidPrefix) {
			t.Errorf("Range(%q) should return ErrInvalidPrefix, got: %v", prefix, err)
		}
	}
}

func TestClientCheckPassword(t *testing.T) {
	// SHA1("password") is 5BAA61E4C9B93F3F0682250B6CF8331B7EE68FD8
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/range/5BAA6" {
			t.Errorf("path: %s, want: /range/5BAA6", r.URL.Path)
		}
		body := strings.Join([]string{
			"0018A45C4D1DEF81644B54AB7F969B88D65:1",
			"1E4C9B93F3F0682250B6CF8331B7EE68FD8:10437277",
			"011053FD0102E94D6AE2F8B83D76FAF94F6:1",
		}, "\r\n")
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	client := testClient(server.URL + "/range/")

	result, err := client.CheckPassword(context.Background(), "password")
	if err != nil {
		t.Fatalf("CheckPassword should not fail: %s", err)
	}
	if !result.Found {
		t.Errorf("password should be found")
	}
	if result.Count != 10437277 {
		t.Errorf("count: %d, want: 10437277", result.Count)
	}
}

func TestClientCheckPasswordNotBreached(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := testClient(server.URL + "/range/")

	result, err := client.CheckPassword(context.Background(), "1mag@saG(@31*sasd.")
	if err != nil {
		t.Fatalf("CheckPassword should not fail: %s", err)
	}
	if result.Found || result.Count != 0 {
		t.Errorf("password should not be found: %+v", result)
	}
}

func TestClientCheckHash(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/range/5BAA6" {
			t.Errorf("path: %s, want: /range/5BAA6", r.URL.Path)
		}
		_, _ = w.Write([]byte("1E4C9B93F3F0682250B6CF8331B7EE68FD8:10437277\r\n"))
	}))
	defer server.Close()

	client := testClient(server.URL + "/range/")

	// lower case digests are accepted
	result, err := client.CheckHash(context.Background(), "5baa61e4c9b93f3f0682250b6cf8331b7ee68fd8")
	if err != nil {
		t.Fatalf("CheckHash should not fail: %s", err)
	}
	if !result.Found || result.Count != 10437277 {
		t.Errorf("hash should be found: %+v", result)
	}
}

func TestClientCheckHashInvalid(t *testing.T) {
	client := testClient(DefaultBaseURL)
	cases := []string{
		"",
		"5BAA6",
		"not a hash at all, but 40 characters!!!!",
		"5BAA61E4C9B93F3F0682250B6CF8331B7EE68FD", // 39 chars
	}

	for _, hash := range cases {
		if _, err := client.CheckHash(context.Background(), hash); !errors.Is(err, ErrInvalidHash) {
			t.Errorf("CheckHash(%q) should return ErrInvalidHash, got: %v", hash, err)
		}
	}
}
