package rpc

import (
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"sync"

	"github.com/shenjiangwei/earlyAllocator/early"
)

// ServiceName is the name the arena is registered under.
const ServiceName = "Arena"

// Server exposes an early allocator over net/rpc. Every call goes through
// an early.Handle, so concurrent clients are serialized.
type Server struct {
	rpc      *rpc.Server
	mu       sync.Mutex
	listener net.Listener
	closed   bool
}

// AllocRequest represents a byte allocation request
type AllocRequest struct {
	Size  uint64
	Align uint64
}

// AllocResponse represents an allocation response
type AllocResponse struct {
	Addr  uint64
	Error string
}

// FreeRequest represents a byte release request
type FreeRequest struct {
	Addr  uint64
	Size  uint64
	Align uint64
}

// FreeResponse represents a release response
type FreeResponse struct {
	Error string
}

// PagesRequest represents a page allocation or release request
type PagesRequest struct {
	Addr     uint64
	NumPages uint64
	Align    uint64
}

// StatsRequest is the empty argument of Arena.Stats
type StatsRequest struct{}

// StatsResponse describes the arena
type StatsResponse struct {
	Stats          early.Stats
	TotalBytes     uint64
	UsedBytes      uint64
	AvailableBytes uint64
	TotalPages     uint64
	UsedPages      uint64
	AvailablePages uint64
}

// NewServer creates a server managing the range [start, start+size).
func NewServer(pageSize uintptr, start, size uint64) (*Server, error) {
	h := early.NewHandle(pageSize)
	if err := h.Init(uintptr(start), uintptr(size)); err != nil {
		return nil, fmt.Errorf("failed to initialize arena: %w", err)
	}

	srv := rpc.NewServer()
	if err := srv.RegisterName(ServiceName, &service{handle: h}); err != nil {
		return nil, fmt.Errorf("failed to register arena service: %w", err)
	}
	return &Server{rpc: srv}, nil
}

// Serve accepts connections on listener until Close. If Close already ran,
// Serve closes listener and returns nil.
func (s *Server) Serve(listener net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		listener.Close()
		return nil
	}
	s.listener = listener
	s.mu.Unlock()

	early.Info("Arena server listening on %s", listener.Addr())
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			early.Error("Failed to accept connection: %v", err)
			return err
		}
		go s.rpc.ServeConn(conn)
	}
}

// Close stops accepting connections. It may be called before Serve.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

// service holds the methods published over rpc.
type service struct {
	handle *early.Handle
}

func (s *service) AllocBytes(req *AllocRequest, resp *AllocResponse) error {
	addr, err := s.handle.Alloc(early.Layout{Size: uintptr(req.Size), Align: uintptr(req.Align)})
	if err != nil {
		resp.Error = err.Error()
		return nil
	}
	resp.Addr = uint64(addr)
	return nil
}

func (s *service) ReleaseBytes(req *FreeRequest, resp *FreeResponse) error {
	s.handle.Dealloc(uintptr(req.Addr), early.Layout{Size: uintptr(req.Size), Align: uintptr(req.Align)})
	return nil
}

func (s *service) AllocPages(req *PagesRequest, resp *AllocResponse) error {
	addr, err := s.handle.AllocPages(uintptr(req.NumPages), uintptr(req.Align))
	if err != nil {
		resp.Error = err.Error()
		return nil
	}
	resp.Addr = uint64(addr)
	return nil
}

func (s *service) ReleasePages(req *PagesRequest, resp *FreeResponse) error {
	if err := s.handle.DeallocPages(uintptr(req.Addr), uintptr(req.NumPages)); err != nil {
		resp.Error = err.Error()
	}
	return nil
}

// Stats derives every counter from a single snapshot so concurrent
// allocations cannot tear the response.
func (s *service) Stats(_ *StatsRequest, resp *StatsResponse) error {
	st := s.handle.Stats()
	*resp = StatsResponse{
		Stats:          st,
		TotalBytes:     uint64(st.PagePos - st.Start),
		UsedBytes:      uint64(st.BytePos - st.Start),
		AvailableBytes: uint64(st.PagePos - st.BytePos),
		TotalPages:     uint64((st.End - st.Start) / st.PageSize),
		UsedPages:      uint64((st.End - st.PagePos) / st.PageSize),
		AvailablePages: uint64((st.PagePos - st.BytePos) / st.PageSize),
	}
	return nil
}
