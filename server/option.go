package server

// Option configures the server during New.
type Option func(*Server)

// WithPort overrides the listen port.
func WithPort(port string) Option {
	return func(s *Server) {
		s.port = port
	}
}
