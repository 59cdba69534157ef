package canvas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Sternrassler/canvas-mcp/pkg/client"
)

// UploadParams describe a file upload. The target is the folder when
// FolderID is set, the course files when CourseID is set, and the caller's
// personal files otherwise.
type UploadParams struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
	CourseID    int64
	FolderID    int64
}

type uploadTicket struct {
	UploadURL    string         `json:"upload_url"`
	UploadParams map[string]any `json:"upload_params"`
}

// ListFiles lists the files of a folder, or of the course when folderID is 0.
func (s *Service) ListFiles(ctx context.Context, courseID, folderID int64) ([]File, error) {
	if folderID > 0 {
		return list[File](ctx, s, fmt.Sprintf("/folders/%d/files", folderID), nil)
	}
	if err := requireID("course_id", courseID); err != nil {
		return nil, err
	}
	return list[File](ctx, s, fmt.Sprintf("/courses/%d/files", courseID), nil)
}

// GetFile fetches file metadata.
func (s *Service) GetFile(ctx context.Context, fileID int64) (*File, error) {
	if err := requireID("file_id", fileID); err != nil {
		return nil, err
	}
	return get[*File](ctx, s, "/files/"+itoa(fileID), nil)
}

// ListFolders lists the folders of a course.
func (s *Service) ListFolders(ctx context.Context, courseID int64) ([]Folder, error) {
	if err := requireID("course_id", courseID); err != nil {
		return nil, err
	}
	return list[Folder](ctx, s, fmt.Sprintf("/courses/%d/folders", courseID), nil)
}

// UploadFileFromPath uploads a local file. The target is folderID when set,
// else the files of courseID, else the caller's personal files.
func (s *Service) UploadFileFromPath(ctx context.Context, path string, courseID, folderID int64) (*File, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: file_path is required", ErrInvalidArgument)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInvalidArgument, path)
	}

	return s.UploadFile(ctx, UploadParams{
		Name:        filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Size:        info.Size(),
		Content:     f,
		CourseID:    courseID,
		FolderID:    folderID,
	})
}

// UploadFile runs the three-step Canvas upload: request an upload ticket,
// post the bytes to the upload URL, then confirm if Canvas asks for it.
func (s *Service) UploadFile(ctx context.Context, params UploadParams) (*File, error) {
	if params.Name == "" {
		return nil, fmt.Errorf("%w: file name is required", ErrInvalidArgument)
	}
	if params.Content == nil {
		return nil, fmt.Errorf("%w: file content is required", ErrInvalidArgument)
	}

	endpoint := "/users/self/files"
	switch {
	case params.FolderID > 0:
		endpoint = fmt.Sprintf("/folders/%d/files", params.FolderID)
	case params.CourseID > 0:
		endpoint = fmt.Sprintf("/courses/%d/files", params.CourseID)
	}

	ticketReq := map[string]any{
		"name":         params.Name,
		"size":         params.Size,
		"on_duplicate": "rename",
	}
	if params.ContentType != "" {
		ticketReq["content_type"] = params.ContentType
	}

	ticket, err := send[uploadTicket](ctx, s, http.MethodPost, endpoint, ticketReq)
	if err != nil {
		return nil, err
	}
	if ticket.UploadURL == "" {
		return nil, fmt.Errorf("%w: upload ticket without upload_url", ErrUnexpectedResponse)
	}

	s.logger.Debug().
		Str("name", params.Name).
		Int64("size", params.Size).
		Str("endpoint", endpoint).
		Msg("Uploading file to Canvas")

	return s.postUpload(ctx, ticket, params)
}

// postUpload sends the multipart body to the upload URL. The upload host
// authenticates through the ticket parameters, so the Canvas token is not
// sent and redirects are handled explicitly.
func (s *Service) postUpload(ctx context.Context, ticket uploadTicket, params UploadParams) (*File, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(ticket.UploadParams))
	for k := range ticket.UploadParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, formValue(ticket.UploadParams[k])); err != nil {
			return nil, fmt.Errorf("write upload field %s: %w", k, err)
		}
	}

	// Canvas requires the file to be the last part.
	part, err := w.CreateFormFile("file", params.Name)
	if err != nil {
		return nil, fmt.Errorf("create upload part: %w", err)
	}
	if _, err := io.Copy(part, params.Content); err != nil {
		return nil, fmt.Errorf("read upload content: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finish upload body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ticket.UploadURL, &buf)
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	hc := *s.client.HTTPClient()
	hc.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", params.Name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upload response: %w", err)
	}

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		location := resp.Header.Get("Location")
		if location == "" {
			return nil, fmt.Errorf("%w: upload redirect without Location", ErrUnexpectedResponse)
		}
		return s.confirmUpload(ctx, location)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: upload failed with status %d: %s",
			ErrUnexpectedResponse, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result struct {
		File
		Location string `json:"location"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	if result.Location != "" {
		return s.confirmUpload(ctx, result.Location)
	}
	if result.ID == 0 {
		return nil, fmt.Errorf("%w: upload response without file id", ErrUnexpectedResponse)
	}
	return &result.File, nil
}

// confirmUpload completes an upload by fetching the confirmation location
// with Canvas credentials.
func (s *Service) confirmUpload(ctx context.Context, location string) (*File, error) {
	resp, err := s.client.Do(ctx, &client.Request{Method: http.MethodGet, Path: location, SinglePage: true})
	if err != nil {
		return nil, err
	}
	var file File
	if err := resp.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode upload confirmation: %w", err)
	}
	if file.ID == 0 {
		return nil, fmt.Errorf("%w: upload confirmation without file id", ErrUnexpectedResponse)
	}
	return &file, nil
}

func formValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(raw)
	}
}
