package devserver

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"

	"github.com/MrEthical07/notees/backend"
	"github.com/MrEthical07/notees/middleware"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type uploadResult struct {
	Key string `json:"Key"`
}

// readUpload returns the object bytes and content type of an upload. Both a
// raw body and a multipart form with one file part are accepted. At most
// limit+1 bytes are read so oversize uploads can be detected.
func readUpload(r *http.Request, limit int64) ([]byte, string, error) {
	contentType := r.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType != "multipart/form-data" {
		data, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
		return data, contentType, err
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, "", err
	}
	for {
		part, err := mr.NextPart()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, "", errors.New("multipart body has no file part")
			}
			return nil, "", err
		}
		if part.FileName() == "" && part.FormName() != "" {
			_ = part.Close()
			continue
		}
		data, err := io.ReadAll(io.LimitReader(part, limit+1))
		ct := part.Header.Get("Content-Type")
		_ = part.Close()
		return data, ct, err
	}
}

func (s *Server) putObject(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	bucket, objectPath := vars["bucket"], vars["path"]
	if bucket != s.cfg.Bucket {
		writeStorageError(w, http.StatusNotFound, "Bucket not found", "Bucket not found")
		return
	}

	data, contentType, err := readUpload(r, s.cfg.Backend.MaxObjectBytes)
	if err != nil {
		writeStorageError(w, http.StatusBadRequest, "InvalidRequest", "could not read upload body")
		return
	}

	upsert, _ := strconv.ParseBool(r.Header.Get("x-upsert"))
	if upsert {
		err = s.backend.ReplaceObject(r.Context(), bucket, objectPath, contentType, data)
	} else {
		err = s.backend.PutObject(r.Context(), bucket, objectPath, contentType, data)
	}
	switch {
	case err == nil:
		if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
			s.logger.Debug("object stored",
				zap.String("key", bucket+"/"+objectPath),
				zap.String("user_id", claims.Subject),
				zap.Int("bytes", len(data)),
			)
		}
		writeJSON(w, http.StatusOK, uploadResult{Key: bucket + "/" + objectPath})
	case errors.Is(err, backend.ErrObjectExists):
		writeStorageError(w, http.StatusConflict, "Duplicate", "The resource already exists")
	case errors.Is(err, backend.ErrObjectTooLarge):
		writeStorageError(w, http.StatusRequestEntityTooLarge, "Payload too large", "The object exceeded the maximum allowed size")
	case errors.Is(err, backend.ErrInvalidObjectPath):
		writeStorageError(w, http.StatusBadRequest, "InvalidKey", "Invalid key: "+objectPath)
	default:
		s.logger.Warn("object upload failed", zap.Error(err))
		writeStorageError(w, http.StatusServiceUnavailable, "DatabaseError", "storage backend unavailable")
	}
}

func (s *Server) getPublicObject(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	bucket, objectPath := vars["bucket"], vars["path"]
	if bucket != s.cfg.Bucket {
		writeStorageError(w, http.StatusNotFound, "Bucket not found", "Bucket not found")
		return
	}

	obj, err := s.backend.GetObject(r.Context(), bucket, objectPath)
	switch {
	case err == nil:
	case errors.Is(err, backend.ErrObjectNotFound), errors.Is(err, backend.ErrInvalidObjectPath):
		writeStorageError(w, http.StatusNotFound, "not_found", "Object not found")
		return
	default:
		s.logger.Warn("object read failed", zap.Error(err))
		writeStorageError(w, http.StatusServiceUnavailable, "DatabaseError", "storage backend unavailable")
		return
	}

	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Cache-Control", "max-age=3600")
	http.ServeContent(w, r, path.Base(objectPath), obj.CreatedAt, bytes.NewReader(obj.Data))
}
