package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	timeout   time.Duration
	rootCmd   = &cobra.Command{
		Use:   "sonova",
		Short: "Sonova CLI - Resolve and proxy video streams",
		Long:  `A command-line client for a running Sonova server.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Minute, "Request timeout")

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(streamsCmd)
	rootCmd.AddCommand(proxyCmd)
	rootCmd.AddCommand(healthCmd)
}

// newClient returns a client that optionally stops at redirects so JSON errors are reported
func newClient(followRedirects bool) *http.Client {
	client := &http.Client{Timeout: timeout}
	if !followRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return client
}

var resolveCmd = &cobra.Command{
	Use:   "resolve [url-or-id]",
	Short: "Resolve a video to a direct media URL",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		format, _ := cmd.Flags().GetString("format")
		audioQuality, _ := cmd.Flags().GetInt("audio-quality")
		noFallback, _ := cmd.Flags().GetBool("no-fallback")
		start, _ := cmd.Flags().GetString("start")
		end, _ := cmd.Flags().GetString("end")

		q := url.Values{}
		q.Set("url", args[0])
		q.Set("format", format)
		q.Set("delivery", "json")
		if audioQuality > 0 {
			q.Set("audioQuality", fmt.Sprint(audioQuality))
		}
		if noFallback {
			q.Set("fallback", "false")
		}
		if start != "" {
			q.Set("start", start)
		}
		if end != "" {
			q.Set("end", end)
		}

		var result map[string]interface{}
		getJSON(serverURL+"/api/v1/youtube/download?"+q.Encode(), &result)

		fmt.Printf("Resolved successfully!\n")
		fmt.Printf("  Requested: %v\n", result["requested"])
		fmt.Printf("  Quality:   %v\n", result["quality"])
		fmt.Printf("  Format:    %v\n", result["format"])
		fmt.Printf("  Degraded:  %v\n", result["degraded"])
		fmt.Printf("  URL:       %v\n", result["url"])
		fmt.Printf("  Proxy:     %v\n", result["proxy_url"])
	},
}

var streamsCmd = &cobra.Command{
	Use:   "streams [url-or-id]",
	Short: "List the qualities offered for a video",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		jsonOutput, _ := cmd.Flags().GetBool("json")

		q := url.Values{}
		q.Set("url", args[0])

		var catalog struct {
			VideoID      string `json:"video_id"`
			CanonicalURL string `json:"canonical_url"`
			Preview      *struct {
				Quality string `json:"quality"`
				URL     string `json:"url"`
			} `json:"preview_stream"`
			VideoFormats []option `json:"video_formats"`
			AudioFormats []option `json:"audio_formats"`
		}
		body := getJSON(serverURL+"/api/v1/youtube/streams?"+q.Encode(), &catalog)

		if jsonOutput {
			fmt.Println(string(body))
			return
		}

		fmt.Printf("Video: %s (%s)\n", catalog.VideoID, catalog.CanonicalURL)
		if catalog.Preview != nil {
			fmt.Printf("Preview (%s): %s\n", catalog.Preview.Quality, truncate(catalog.Preview.URL, 80))
		} else {
			fmt.Println("Preview: unavailable")
		}
		fmt.Println()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "QUALITY\tFORMAT\tAUDIO\tVIDEO")
		for _, o := range append(catalog.VideoFormats, catalog.AudioFormats...) {
			fmt.Fprintf(w, "%s\t%s\t%t\t%t\n", o.Quality, o.Format, o.HasAudio, o.HasVideo)
		}
		w.Flush()
	},
}

var proxyCmd = &cobra.Command{
	Use:   "proxy [media-url]",
	Short: "Download a resolved media URL through the proxy",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		output, _ := cmd.Flags().GetString("output")
		rangeHeader, _ := cmd.Flags().GetString("range")

		q := url.Values{}
		q.Set("fileUrl", args[0])
		q.Set("download", "1")

		req, err := http.NewRequest(http.MethodGet, serverURL+"/api/v1/youtube/proxy?"+q.Encode(), nil)
		if err != nil {
			fatal(err)
		}
		if rangeHeader != "" {
			req.Header.Set("Range", rangeHeader)
		}

		resp, err := newClient(true).Do(req)
		if err != nil {
			fatal(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
			body, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
			os.Exit(1)
		}

		var dst io.Writer = os.Stdout
		if output != "" && output != "-" {
			f, err := os.Create(output)
			if err != nil {
				fatal(err)
			}
			defer f.Close()
			dst = f
		}

		n, err := io.Copy(dst, resp.Body)
		if err != nil {
			fatal(err)
		}
		if dst != os.Stdout {
			fmt.Printf("Wrote %d bytes to %s (status %d)\n", n, output, resp.StatusCode)
		}
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check server health",
	Run: func(cmd *cobra.Command, args []string) {
		var health map[string]interface{}
		getJSON(serverURL+"/health", &health)

		fmt.Println("Server Health:")
		fmt.Printf("  Status:  %v\n", health["status"])
		fmt.Printf("  Version: %v\n", health["version"])
		if worker, ok := health["worker"].(map[string]interface{}); ok {
			fmt.Printf("  Worker:  configured=%v\n", worker["configured"])
		}
	},
}

type option struct {
	Quality  string `json:"quality"`
	Format   string `json:"format"`
	HasAudio bool   `json:"has_audio"`
	HasVideo bool   `json:"has_video"`
}

func init() {
	resolveCmd.Flags().StringP("format", "f", "720", "Requested quality (144..1440, 4k, 8k, mp3)")
	resolveCmd.Flags().IntP("audio-quality", "a", 0, "Audio bitrate in kbps for mp3")
	resolveCmd.Flags().Bool("no-fallback", false, "Fail instead of trying lower qualities")
	resolveCmd.Flags().String("start", "", "Clip start in seconds")
	resolveCmd.Flags().String("end", "", "Clip end in seconds")
	streamsCmd.Flags().BoolP("json", "j", false, "Output in JSON format")
	proxyCmd.Flags().StringP("output", "o", "", "Output file (default stdout)")
	proxyCmd.Flags().StringP("range", "r", "", "Byte range, e.g. bytes=0-1023")
}

// getJSON fetches url and decodes a 200 response into v, exiting on failure
func getJSON(target string, v interface{}) []byte {
	resp, err := newClient(false).Get(target)
	if err != nil {
		fatal(err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Error (%d): %s\n", resp.StatusCode, string(body))
		os.Exit(1)
	}
	if err := json.Unmarshal(body, v); err != nil {
		fatal(fmt.Errorf("unexpected response: %w", err))
	}
	return body
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
