package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/retroarena/eventengine/internal/domain"
	domainerrors "github.com/retroarena/eventengine/internal/errors"
	"github.com/retroarena/eventengine/internal/http/response"
	"github.com/retroarena/eventengine/internal/id"
	"github.com/retroarena/eventengine/internal/media/blobs"
)

// multipartOverhead is the room left above the file limit for form fields.
const multipartOverhead = 1 << 20

func (s *Server) registerMediaRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "checkCapture",
		Method:      http.MethodGet,
		Path:        "/api/v1/events/{id}/capture",
		Summary:     "Check capture",
		Description: "Reports whether captures for the event are currently accepted",
		Tags:        []string{"Media"},
	}, s.handleCheckCapture)

	huma.Register(s.api, huma.Operation{
		OperationID: "listMedia",
		Method:      http.MethodGet,
		Path:        "/api/v1/media",
		Summary:     "List submissions",
		Description: "Returns submissions newest first",
		Tags:        []string{"Media"},
	}, s.handleListMedia)

	huma.Register(s.api, huma.Operation{
		OperationID: "getMedia",
		Method:      http.MethodGet,
		Path:        "/api/v1/media/{id}",
		Summary:     "Get submission",
		Description: "Returns one submission with the caller's vote",
		Tags:        []string{"Media"},
	}, s.handleGetMedia)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteMedia",
		Method:        http.MethodDelete,
		Path:          "/api/v1/media/{id}",
		Summary:       "Delete submission",
		Description:   "Deletes the caller's own submission and releases its bytes",
		Tags:          []string{"Media"},
		DefaultStatus: http.StatusNoContent,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteMedia)

	huma.Register(s.api, huma.Operation{
		OperationID: "voteMedia",
		Method:      http.MethodPost,
		Path:        "/api/v1/media/{id}/vote",
		Summary:     "Vote on submission",
		Description: "Casts, moves or clears the caller's vote",
		Tags:        []string{"Media"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleVoteMedia)

	huma.Register(s.api, huma.Operation{
		OperationID: "reportMedia",
		Method:      http.MethodPost,
		Path:        "/api/v1/media/{id}/report",
		Summary:     "Report submission",
		Description: "Files a report; one per user per submission",
		Tags:        []string{"Media"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleReportMedia)

	huma.Register(s.api, huma.Operation{
		OperationID: "listMediaReports",
		Method:      http.MethodGet,
		Path:        "/api/v1/media/{id}/reports",
		Summary:     "List reports",
		Description: "Returns the reports filed against a submission. Moderators only",
		Tags:        []string{"Media"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListMediaReports)

	huma.Register(s.api, huma.Operation{
		OperationID: "setMediaVerification",
		Method:      http.MethodPut,
		Path:        "/api/v1/media/{id}/verification",
		Summary:     "Review submission",
		Description: "Approves or rejects a submission. Moderators only",
		Tags:        []string{"Media"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSetVerification)
}

// === DTOs ===

// CaptureResponse reports whether a capture is allowed.
type CaptureResponse struct {
	EventID    string `json:"event_id" doc:"Event ID"`
	CanCapture bool   `json:"can_capture" doc:"Captures accepted now"`
	Reason     string `json:"reason,omitempty" doc:"Error code when refused"`
}

// CaptureOutput wraps the capture response for Huma.
type CaptureOutput struct {
	Body CaptureResponse
}

// ListMediaInput contains parameters for listing submissions.
type ListMediaInput struct {
	EventID string `query:"event_id" doc:"Filter by event"`
	GameID  string `query:"game_id" doc:"Filter by game"`
	UserID  string `query:"user_id" doc:"Filter by author"`
	Limit   int    `query:"limit" default:"50" minimum:"1" maximum:"200" doc:"Maximum results"`
}

// ListMediaResponse contains a list of submissions.
type ListMediaResponse struct {
	Submissions []*domain.MediaSubmission `json:"submissions" doc:"Submissions newest first"`
}

// ListMediaOutput wraps the list response for Huma.
type ListMediaOutput struct {
	Body ListMediaResponse
}

// MediaIDInput identifies a submission by path.
type MediaIDInput struct {
	ID string `path:"id" doc:"Submission ID"`
}

// MediaOutput wraps one submission for Huma.
type MediaOutput struct {
	Body *domain.MediaSubmission
}

// VoteRequest is the request body for voting.
type VoteRequest struct {
	Choice string `json:"choice" enum:"like,dislike" doc:"Repeating the current vote clears it"`
}

// VoteInput wraps the vote request for Huma.
type VoteInput struct {
	ID   string `path:"id" doc:"Submission ID"`
	Body VoteRequest
}

// VoteOutput wraps the new tallies for Huma.
type VoteOutput struct {
	Body domain.Votes
}

// ReportRequest is the request body for reporting.
type ReportRequest struct {
	Reason string `json:"reason" doc:"Why the submission is being reported"`
}

// ReportInput wraps the report request for Huma.
type ReportInput struct {
	ID   string `path:"id" doc:"Submission ID"`
	Body ReportRequest
}

// ReportResponse reports the new report count.
type ReportResponse struct {
	Reports int `json:"reports" doc:"Total reports on the submission"`
}

// ReportOutput wraps the report response for Huma.
type ReportOutput struct {
	Body ReportResponse
}

// ListReportsResponse lists the reports on a submission.
type ListReportsResponse struct {
	Reports []domain.MediaReport `json:"reports" doc:"Reports, oldest first"`
}

// ListReportsOutput wraps the report list for Huma.
type ListReportsOutput struct {
	Body ListReportsResponse
}

// VerificationRequest is the request body for a moderation review.
type VerificationRequest struct {
	Verified bool   `json:"verified" doc:"Approve when true, reject when false"`
	Notes    string `json:"notes,omitempty" doc:"Moderator notes"`
}

// VerificationInput wraps the review request for Huma.
type VerificationInput struct {
	ID   string `path:"id" doc:"Submission ID"`
	Body VerificationRequest
}

// === Handlers ===

func (s *Server) handleCheckCapture(_ context.Context, input *EventIDInput) (*CaptureOutput, error) {
	resp := CaptureResponse{EventID: input.ID, CanCapture: true}

	if err := s.services.Media.CaptureBlockReason(input.ID, s.now()); err != nil {
		var de *domainerrors.Error
		if !errors.As(err, &de) || de.Code == domainerrors.CodeEventNotFound {
			return nil, err
		}
		resp.CanCapture = false
		resp.Reason = string(de.Code)
	}
	return &CaptureOutput{Body: resp}, nil
}

func (s *Server) handleListMedia(ctx context.Context, input *ListMediaInput) (*ListMediaOutput, error) {
	viewer := userIDFromContext(ctx)

	filter := domain.SubmissionFilter{
		EventID: input.EventID,
		GameID:  input.GameID,
		UserID:  input.UserID,
		Limit:   input.Limit,
	}
	// Private submissions are visible to their author and to moderators.
	filter.PublicOnly = !s.canSeePrivate(ctx, input.UserID)

	subs, err := s.services.Moderation.List(ctx, filter, viewer)
	if err != nil {
		return nil, err
	}
	for _, sub := range subs {
		s.presentMedia(sub)
	}
	return &ListMediaOutput{Body: ListMediaResponse{Submissions: subs}}, nil
}

func (s *Server) handleGetMedia(ctx context.Context, input *MediaIDInput) (*MediaOutput, error) {
	sub, err := s.visibleMedia(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	s.presentMedia(sub)
	return &MediaOutput{Body: sub}, nil
}

func (s *Server) handleDeleteMedia(ctx context.Context, input *MediaIDInput) (*struct{}, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Moderation.Delete(ctx, input.ID, userID, s.now()); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleVoteMedia(ctx context.Context, input *VoteInput) (*VoteOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.visibleMedia(ctx, input.ID); err != nil {
		return nil, err
	}

	votes, err := s.services.Moderation.Vote(ctx, input.ID, userID, domain.VoteChoice(input.Body.Choice), s.now())
	if err != nil {
		return nil, err
	}
	return &VoteOutput{Body: votes}, nil
}

func (s *Server) handleReportMedia(ctx context.Context, input *ReportInput) (*ReportOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.visibleMedia(ctx, input.ID); err != nil {
		return nil, err
	}

	reports, err := s.services.Moderation.Report(ctx, input.ID, userID, input.Body.Reason, s.now())
	if err != nil {
		return nil, err
	}
	return &ReportOutput{Body: ReportResponse{Reports: reports}}, nil
}

func (s *Server) handleListMediaReports(ctx context.Context, input *MediaIDInput) (*ListReportsOutput, error) {
	if _, err := s.RequireModerator(ctx); err != nil {
		return nil, err
	}
	if !id.Is(input.ID, id.PrefixMedia) {
		return nil, domainerrors.SubmissionNotFound(input.ID)
	}

	reports, err := s.services.Moderation.Reports(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if reports == nil {
		reports = []domain.MediaReport{}
	}
	return &ListReportsOutput{Body: ListReportsResponse{Reports: reports}}, nil
}

func (s *Server) handleSetVerification(ctx context.Context, input *VerificationInput) (*MediaOutput, error) {
	claims, err := s.RequireModerator(ctx)
	if err != nil {
		return nil, err
	}

	sub, err := s.services.Moderation.SetVerification(ctx, input.ID, claims.UserID, input.Body.Verified, input.Body.Notes, s.now())
	if err != nil {
		return nil, err
	}
	s.presentMedia(sub)
	return &MediaOutput{Body: sub}, nil
}

// handleUploadMedia accepts a multipart upload.
// POST /api/v1/media
// Content-Type: multipart/form-data with a "file" part and the draft fields
// game_id, event_id, declared_result_time, title, comment, is_public and type.
func (s *Server) handleUploadMedia(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, err := GetClaims(ctx)
	if err != nil {
		response.Unauthorized(w, "Authentication required", s.logger)
		return
	}

	maxBytes := s.services.Media.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.HandleError(w, domainerrors.FileTooLarge(r.ContentLength, maxBytes), s.logger)
			return
		}
		response.BadRequest(w, "Failed to parse form data", s.logger)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "No file uploaded. Use 'file' field in multipart form", s.logger)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		s.logger.Error("Failed to read uploaded file", "error", err, "user_id", claims.UserID)
		response.InternalError(w, "Failed to read uploaded file", s.logger)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	isPublic := true
	if v := r.FormValue("is_public"); v != "" {
		isPublic, err = strconv.ParseBool(v)
		if err != nil {
			response.BadRequest(w, "is_public must be a boolean", s.logger)
			return
		}
	}

	draft := domain.MediaDraft{
		UserID:             claims.UserID,
		Username:           claims.Username,
		GameID:             strings.TrimSpace(r.FormValue("game_id")),
		EventID:            strings.TrimSpace(r.FormValue("event_id")),
		Type:               domain.MediaType(r.FormValue("type")),
		ContentType:        contentType,
		DeclaredResultTime: r.FormValue("declared_result_time"),
		Title:              r.FormValue("title"),
		Comment:            r.FormValue("comment"),
		IsPublic:           isPublic,
	}

	sub, err := s.services.Media.Accept(ctx, draft, data, s.now())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	s.logger.Info("Media uploaded",
		"submission_id", sub.ID,
		"filename", header.Filename,
		"size", sub.SizeBytes,
		"content_type", sub.ContentType,
	)

	s.presentMedia(sub)
	response.Created(w, sub, s.logger)
}

// visibleMedia loads a submission the caller is allowed to see. Private
// submissions of other users read as missing.
func (s *Server) visibleMedia(ctx context.Context, submissionID string) (*domain.MediaSubmission, error) {
	if !id.Is(submissionID, id.PrefixMedia) {
		return nil, domainerrors.SubmissionNotFound(submissionID)
	}

	sub, err := s.services.Moderation.Get(ctx, submissionID, userIDFromContext(ctx))
	if err != nil {
		return nil, err
	}
	if !sub.IsPublic && !s.canSeePrivate(ctx, sub.UserID) {
		return nil, domainerrors.SubmissionNotFound(submissionID)
	}
	return sub, nil
}

// canSeePrivate reports whether the caller may see private submissions of ownerID.
func (s *Server) canSeePrivate(ctx context.Context, ownerID string) bool {
	claims, err := GetClaims(ctx)
	if err != nil {
		return false
	}
	return claims.CanModerate() || (ownerID != "" && ownerID == claims.UserID)
}

// presentMedia rewrites the storage reference into a fetchable URL.
func (s *Server) presentMedia(sub *domain.MediaSubmission) {
	if s.cfg.MediaURL != nil {
		sub.URL = s.cfg.MediaURL(sub.URL)
		return
	}
	if key, ok := strings.CutPrefix(sub.URL, blobs.LocalScheme); ok {
		sub.URL = "/files/" + key
	}
}
