package apiclient

import (
	"context"
	"strconv"
)

// EnrollResult is the backend's answer to a face enrollment.
type EnrollResult struct {
	FaceID  int64  `json:"face_id"`
	UserID  int64  `json:"user_id"`
	Message string `json:"message"`
}

// EnrollFace registers a face image for userID (admin).
func (c *Client) EnrollFace(ctx context.Context, userID int64, image []byte, filename string) (*EnrollResult, error) {
	if filename == "" {
		filename = "face.jpg"
	}
	var out EnrollResult
	fields := map[string]string{"user_id": strconv.FormatInt(userID, 10)}
	if err := c.sendMultipart(ctx, "/api/face_enrollment/enroll", fields, "image", filename, image, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
