package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestValidateUpstreamURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "public https", url: "https://jsonplaceholder.typicode.com", wantErr: false},
		{name: "public http with path", url: "http://dummyjson.com/api", wantErr: false},
		{name: "empty", url: "", wantErr: true},
		{name: "relative", url: "/posts", wantErr: true},
		{name: "ftp scheme", url: "ftp://example.com", wantErr: true},
		{name: "loopback", url: "http://127.0.0.1:8080", wantErr: true},
		{name: "localhost", url: "http://LOCALHOST", wantErr: true},
		{name: "private", url: "https://10.1.2.3", wantErr: true},
		{name: "metadata", url: "http://169.254.169.254/latest", wantErr: true},
		{name: "ipv6 loopback", url: "http://[::1]/", wantErr: true},
		{name: "public ip", url: "https://93.184.216.34", wantErr: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUpstreamURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateUpstreamURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestNewUpstreamGuard_CollectsHosts(t *testing.T) {
	g, err := NewUpstreamGuard("https://jsonplaceholder.typicode.com", "https://dummyjson.com")
	if err != nil {
		t.Fatalf("NewUpstreamGuard がエラーを返した: %v", err)
	}
	hosts := g.Hosts()
	if len(hosts) != 2 || hosts[0] != "jsonplaceholder.typicode.com" || hosts[1] != "dummyjson.com" {
		t.Errorf("Hosts() = %v", hosts)
	}
}

func TestNewUpstreamGuard_RejectsInvalidURL(t *testing.T) {
	if _, err := NewUpstreamGuard("https://dummyjson.com", "http://127.0.0.1"); err == nil {
		t.Error("ループバックURLを含む場合はエラーになるべき")
	}
}

func TestUpstreamGuard_NewClient(t *testing.T) {
	g, err := NewUpstreamGuard("https://dummyjson.com")
	if err != nil {
		t.Fatalf("NewUpstreamGuard がエラーを返した: %v", err)
	}
	client := g.NewClient(5 * time.Second)
	if client == nil {
		t.Fatal("NewClient() returned nil")
	}
	if client.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", client.Timeout)
	}
	if client.Transport == nil || client.Transport == http.DefaultTransport {
		t.Error("safeurlのTransportが設定されているべき")
	}
}

// httptestサーバーは127.0.0.1で起動されるため、safeurlがブロックする。
func TestUpstreamGuard_NewClientBlocksLoopback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	g, err := NewUpstreamGuard("https://dummyjson.com")
	if err != nil {
		t.Fatalf("NewUpstreamGuard がエラーを返した: %v", err)
	}
	resp, err := g.NewClient(5 * time.Second).Get(ts.URL)
	if err == nil {
		resp.Body.Close()
		t.Fatal("ループバックへのリクエストはブロックされるべき")
	}
}
