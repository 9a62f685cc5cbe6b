package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/tracekeeper/internal/common"
	"github.com/dmitrijs2005/tracekeeper/internal/server/tempid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

func (s *GRPCServer) TemporaryIDs(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	userID, _ := userIDFromContext(ctx)

	batch, err := s.contacts.GenerateTemporaryIDs(ctx, userID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	tokens := make([]any, 0, len(batch.Tokens))
	for _, t := range batch.Tokens {
		tokens = append(tokens, map[string]any{"token": t.Token, "start": t.Start, "end": t.End})
	}
	return s.reply(ctx, map[string]any{"tokens": tokens, "server_start_time": batch.ServerStartTime})
}

func (s *GRPCServer) Upload(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, _ := userIDFromContext(ctx)

	var reports []tempid.ContactReport
	if list := req.GetFields()["tokens"].GetListValue(); list != nil {
		reports = make([]tempid.ContactReport, 0, len(list.GetValues()))
		for _, v := range list.GetValues() {
			item, _ := v.AsInterface().(map[string]any)
			reports = append(reports, tempid.ReportFromMap(item))
		}
	}

	n, err := s.contacts.UploadContacts(ctx, userID, reports)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return s.reply(ctx, map[string]any{"uploaded": n})
}

func (s *GRPCServer) UploadStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	userID, _ := userIDFromContext(ctx)

	required, err := s.contacts.UploadRequired(ctx, userID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return s.reply(ctx, map[string]any{"status": required})
}

func (s *GRPCServer) ExposureStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	userID, _ := userIDFromContext(ctx)

	st, err := s.contacts.ExposureStatus(ctx, userID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return s.reply(ctx, map[string]any{"status": string(st)})
}

func (s *GRPCServer) reply(ctx context.Context, m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		s.logger.Error(ctx, "encode reply", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case common.IsPolicyError(err):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, common.ErrBackendUnavailable):
		s.logger.Warn(ctx, "backend unavailable", "error", err)
		return status.Error(codes.Unavailable, "service temporarily unavailable")
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrInvalidToken):
		return status.Error(codes.Unauthenticated, "unauthorized")
	default:
		s.logger.Error(ctx, err.Error())
		return status.Error(codes.Internal, "internal error")
	}
}
