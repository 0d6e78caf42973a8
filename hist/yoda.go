package hist

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"go-hep.org/x/hep/hbook"
	"go-hep.org/x/hep/hbook/yodacnv"
)

// MarshalYODA encodes every (histogram, region) pair of the set as a YODA
// histogram named "<histogram>/<region>". NaN flows are not part of the
// YODA payload.
func (s *Set) MarshalYODA() ([]byte, error) {
	var buf bytes.Buffer
	for _, name := range s.Names() {
		h := s.hists[name]
		for _, region := range h.Regions() {
			raw, err := h.h[region].MarshalYODA()
			if err != nil {
				return nil, fmt.Errorf("hist: could not encode %s/%s: %w", name, region, err)
			}
			buf.Write(raw)
		}
	}
	return buf.Bytes(), nil
}

// ReadYODA decodes a YODA stream written by Set.MarshalYODA into
// histogram name -> region -> H1D.
func ReadYODA(r io.Reader) (map[string]map[string]*hbook.H1D, error) {
	objs, err := yodacnv.Read(r)
	if err != nil {
		return nil, fmt.Errorf("hist: could not read YODA stream: %w", err)
	}

	out := make(map[string]map[string]*hbook.H1D)
	for _, o := range objs {
		h, ok := o.(*hbook.H1D)
		if !ok {
			continue
		}
		name, region, ok := splitPath(h.Name())
		if !ok {
			return nil, fmt.Errorf("hist: unexpected YODA path %q", h.Name())
		}
		if out[name] == nil {
			out[name] = make(map[string]*hbook.H1D)
		}
		out[name][region] = h
	}
	return out, nil
}

func splitPath(path string) (name, region string, ok bool) {
	path = strings.TrimPrefix(path, "/")
	i := strings.LastIndex(path, "/")
	if i <= 0 || i == len(path)-1 {
		return "", "", false
	}
	return path[:i], path[i+1:], true
}
