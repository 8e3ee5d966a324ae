package api

import (
	"context"
	"encoding/json"
	"errors"

	"examprep/app/service/session"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func (s *Server) newMCPServer() *server.MCPServer {
	srv := server.NewMCPServer("examprep", "1.0.0", server.WithToolCapabilities(false))

	sessionID := mcp.WithString("session_id",
		mcp.Required(),
		mcp.Description("Session id returned by create_session"))

	srv.AddTool(mcp.NewTool("create_session",
		mcp.WithDescription("Start a new study session and return its id"),
	), s.mcpCreateSession)

	srv.AddTool(mcp.NewTool("ask_question",
		mcp.WithDescription("Ask a question about the most recently uploaded document of a session"),
		sessionID,
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The question to answer")),
	), s.mcpAskQuestion)

	srv.AddTool(mcp.NewTool("generate_exam",
		mcp.WithDescription("Generate a practice exam from the slides and previous exams of a session"),
		sessionID,
	), s.mcpGenerateExam)

	srv.AddTool(mcp.NewTool("get_transcript",
		mcp.WithDescription("Return the chat transcript of a session as JSON"),
		sessionID,
	), s.mcpGetTranscript)

	return srv
}

func (s *Server) mcpCreateSession(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.sessionSvc.Create().ID()), nil
}

func (s *Server) mcpAskQuestion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, result := s.mcpSession(request)
	if result != nil {
		return result, nil
	}

	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err = sess.Answer(ctx, question); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(lastReply(sess.Snapshot())), nil
}

func (s *Server) mcpGenerateExam(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, result := s.mcpSession(request)
	if result != nil {
		return result, nil
	}

	// an incomplete corpus still leaves an explanation in the transcript
	if err := sess.GenerateExam(ctx); err != nil && !errors.Is(err, session.ErrCorpusIncomplete) {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(lastReply(sess.Snapshot())), nil
}

func (s *Server) mcpGetTranscript(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, result := s.mcpSession(request)
	if result != nil {
		return result, nil
	}

	data, err := json.Marshal(sess.Snapshot().Transcript)
	if err != nil {
		return nil, err
	}

	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) mcpSession(request mcp.CallToolRequest) (*session.Session, *mcp.CallToolResult) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}

	sess, err := s.sessionSvc.Get(id)
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}

	return sess, nil
}

func lastReply(snapshot session.Snapshot) string {
	transcript := snapshot.Transcript
	if len(transcript) == 0 {
		return ""
	}

	return transcript[len(transcript)-1].Content
}
