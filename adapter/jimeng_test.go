package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YspCoder/omnimedia/dto"
)

func TestJimengVideoRequest(t *testing.T) {
	a := &JimengAdaptor{}
	cfg := &ProviderConfig{Name: "jimeng", Model: "jimeng_i2v_first_v30"}

	body, err := a.ConvertVideoRequest(context.Background(), cfg, &dto.VideoRequest{
		Payload: &dto.MediaPayload{MIMEType: "image/png", Data: []byte("png")},
		Prompt:  "a rabbit",
		Extra:   map[string]interface{}{"frames": 121},
	})
	require.NoError(t, err)

	var req JimengSubmitTaskRequest
	require.NoError(t, json.Unmarshal(body, &req))
	assert.Equal(t, "jimeng_i2v_first_v30", req.ReqKey)
	assert.Equal(t, []string{"cG5n"}, req.BinaryDataBase64)
	assert.Equal(t, -1, req.Seed)
	assert.Equal(t, 121, req.Frames)
}

func TestJimengSubmitResponse(t *testing.T) {
	a := &JimengAdaptor{}
	cfg := &ProviderConfig{Name: "jimeng"}

	job, err := a.ConvertVideoResponse(context.Background(), cfg, []byte(`{"code":10000,"message":"Success","data":{"task_id":"7392"},"request_id":"r1"}`))
	require.NoError(t, err)
	assert.Equal(t, "7392", job.ID)
	assert.False(t, job.Done)

	_, err = a.ConvertVideoResponse(context.Background(), cfg, []byte(`{"code":50411,"message":"Pre Img Risk Not Pass"}`))
	var apiErr *dto.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Pre Img Risk Not Pass", apiErr.Message)
}

func TestJimengStatusRequestIsPost(t *testing.T) {
	a := &JimengAdaptor{}
	method, body, err := a.PrepareTaskStatusRequest(context.Background(), &ProviderConfig{}, "7392")
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, method)
	assert.JSONEq(t, `{"req_key":"jimeng_i2v_first_v30","task_id":"7392"}`, string(body))
}

func TestJimengStatusMapping(t *testing.T) {
	a := &JimengAdaptor{}
	cfg := &ProviderConfig{Name: "jimeng"}

	cases := []struct {
		status string
		done   bool
		failed bool
	}{
		{"in_queue", false, false},
		{"generating", false, false},
		{"done", true, false},
		{"not_found", true, true},
		{"expired", true, true},
	}
	for _, tc := range cases {
		t.Run(tc.status, func(t *testing.T) {
			body := []byte(`{"code":10000,"data":{"status":"` + tc.status + `","video_url":"https://cdn.example/v.mp4"}}`)
			job, err := a.ConvertTaskStatusResponse(context.Background(), cfg, body)
			require.NoError(t, err)
			assert.Equal(t, tc.done, job.Done)
			assert.Equal(t, tc.failed, job.Failed())
		})
	}

	_, err := a.ConvertTaskStatusResponse(context.Background(), cfg, []byte(`{"code":10000,"data":{"status":"melting"}}`))
	assert.True(t, errors.Is(err, dto.ErrUnrecognizedResponse))
}
