package server

import (
	"mime/multipart"
	"net/http"

	"github.com/aristath/stockhunter/internal/domain"
	"github.com/aristath/stockhunter/internal/universe"
)

const uploadMaxMemory = 32 << 20 // 32 MiB, mirrors the operator-upload listing sizes of spec.md §4.E

// handleUploadStockMaster accepts one or more fixed-width listing files,
// infers each file's market from its filename, and refreshes the master
// cache for that market (spec.md §6.2 POST /api/v1/database/upload-stock-master,
// §4.E operator-upload tier).
func (s *Server) handleUploadStockMaster(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(uploadMaxMemory); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	if r.MultipartForm == nil || len(r.MultipartForm.File) == 0 {
		s.writeError(w, http.StatusBadRequest, "no files uploaded")
		return
	}

	results := map[string]int{}
	for _, headers := range r.MultipartForm.File {
		for _, header := range headers {
			market, ok := universe.MarketFromFilename(header.Filename)
			if !ok {
				s.writeError(w, http.StatusBadRequest, "could not infer market from filename: "+header.Filename)
				return
			}
			if err := s.refreshMasterFromUpload(header, market); err != nil {
				s.writeDomainError(w, "server.handleUploadStockMaster", err)
				return
			}
			results[string(market)]++
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"files_processed": results})
}

func (s *Server) refreshMasterFromUpload(header *multipart.FileHeader, market domain.Market) error {
	f, err := header.Open()
	if err != nil {
		return domain.NewError(domain.KindInvalidInput, "server.refreshMasterFromUpload", err)
	}
	defer f.Close()

	instruments, err := universe.ParseFixedWidth(f, market)
	if err != nil {
		return domain.NewError(domain.KindInvalidInput, "server.refreshMasterFromUpload", err)
	}

	return s.masterCache.Refresh(market, instruments)
}
