package server

import "fmt"

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo() {
	s.displayEndpoints()
	s.displayAuthInfo()
	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
}

// displayEndpoints shows available endpoints
func (s *Server) displayEndpoints() {
	fmt.Printf("Listening on http://%s:%s\n", s.Host, s.Port)
	fmt.Println("Available endpoints:")
	fmt.Println("  GET  /                          - Landing page")
	fmt.Println("  GET  /tools/job-matcher         - Job matcher")
	fmt.Println("  GET  /tools/bullet-analyzer     - Bullet analyzer")
	fmt.Println("  GET  /tools/resume-builder      - Resume builder")
	fmt.Println("  GET  /health                    - Health check")
	fmt.Println("  GET  /stats                     - Server statistics")
	if endpoint := s.om.PrometheusEndpoint(); endpoint != "" {
		fmt.Printf("  GET  %-26s - Prometheus metrics\n", endpoint)
	}
	fmt.Println("  POST /api/bullet/init           - Start bullet analysis")
	fmt.Println("  GET  /api/bullet/stream         - Stream bullet analysis (SSE)")
	fmt.Println("  POST /api/job/match             - Match resume to job description")
	fmt.Println("  POST /api/resume/init-parse     - Start resume parsing")
	fmt.Println("  GET  /api/resume/parse-stream   - Stream parse progress (SSE)")
	fmt.Println("  GET  /api/resume/state          - Session resume state")
	fmt.Println("  PUT  /api/resume/update         - Fill resume gaps")
	fmt.Println("  POST /api/resume/download       - Download resume PDF")
}

// displayAuthInfo shows authentication configuration
func (s *Server) displayAuthInfo() {
	if len(s.APIKeys) > 0 {
		fmt.Printf("API authentication: ENABLED (%d keys configured)\n", len(s.APIKeys))
		fmt.Println("Include 'X-API-Key: <your-key>' header in requests to /api/*")
	} else {
		fmt.Println("API authentication: DISABLED (no API keys configured)")
		fmt.Println("WARNING: API endpoints are publicly accessible!")
	}
}

// displayRequestLimitInfo shows request size limit configuration
func (s *Server) displayRequestLimitInfo() {
	if s.MaxRequestSize > 0 {
		fmt.Printf("Request size limit: %d bytes (%.1f MB)\n", s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024))
	} else {
		fmt.Println("Request size limit: DISABLED")
		fmt.Println("WARNING: No request size limits configured!")
	}
}

// displayRateLimitInfo shows rate limiting configuration
func (s *Server) displayRateLimitInfo() {
	if s.RateLimit != nil && s.RateLimit.Enabled {
		fmt.Printf("Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
		if s.RateLimit.ByAPIKey {
			fmt.Println("  - Per API key rate limiting enabled")
		}
		if s.RateLimit.ByIP {
			fmt.Println("  - Per IP address rate limiting enabled")
		}
	} else {
		fmt.Println("Rate limiting: DISABLED")
		fmt.Println("WARNING: No rate limiting configured!")
	}
}
