package main

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"
)

// Exercises a running server's signature validation route.
func main() {
	baseURL := os.Getenv("SMOKE_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	fmt.Println("Starting smoke test against", baseURL)
	client := &http.Client{Timeout: 10 * time.Second}

	checks := []struct {
		name string
		ink  color.Color
		want int
	}{
		{"stroke", color.Black, http.StatusOK},
		{"blank pad", color.White, http.StatusBadRequest},
		{"coloured ink", color.RGBA{R: 200, A: 255}, http.StatusBadRequest},
	}

	failed := false
	for i, c := range checks {
		fmt.Printf("%d. Validating %s...\n", i+1, c.name)
		code, body, err := validate(client, baseURL, stroke(c.ink))
		if err != nil {
			fmt.Printf("   Request failed: %v\n", err)
			os.Exit(1)
		}
		if code != c.want {
			fmt.Printf("   FAIL: got %d, want %d: %s\n", code, c.want, body)
			failed = true
			continue
		}
		fmt.Printf("   OK %d %s\n", code, body)
	}

	if failed {
		os.Exit(1)
	}
	fmt.Println("Smoke test passed")
}

func stroke(ink color.Color) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 320, 160))
	for y := 0; y < 160; y++ {
		for x := 0; x < 320; x++ {
			img.Set(x, y, color.White)
		}
	}
	for x := 0; x < 320; x++ {
		for dy := 0; dy < 8; dy++ {
			img.Set(x, x/2+dy, ink)
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

func validate(client *http.Client, baseURL string, data []byte) (int, string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("signature", "signature.png")
	if err != nil {
		return 0, "", err
	}
	if _, err := part.Write(data); err != nil {
		return 0, "", err
	}
	if err := w.Close(); err != nil {
		return 0, "", err
	}

	resp, err := client.Post(baseURL+"/signature/validation", w.FormDataContentType(), &body)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(bytes.TrimSpace(respBody)), nil
}
