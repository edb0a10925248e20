package grpc

import (
	"context"
	"errors"

	"hireflow-backend/internal/domain"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var failureCodes = map[domain.FailureCode]codes.Code{
	domain.FailureNotAuthorized:          codes.PermissionDenied,
	domain.FailureNotApprover:            codes.PermissionDenied,
	domain.FailureNotAuthorizedToDecide:  codes.PermissionDenied,
	domain.FailureNotAuthorizedToApprove: codes.PermissionDenied,
	domain.FailureSelfApprovalForbidden:  codes.PermissionDenied,

	domain.FailureApplicationNotFound:     codes.NotFound,
	domain.FailureStageNotFound:           codes.NotFound,
	domain.FailureRejectionReasonNotFound: codes.NotFound,
	domain.FailureApprovalNotFound:        codes.NotFound,
	domain.FailureApprovableNotFound:      codes.NotFound,
	domain.FailureDecisionNotFound:        codes.NotFound,
	domain.FailureApproverNotFound:        codes.NotFound,
	domain.FailureVerificationNotFound:    codes.NotFound,
	domain.FailureAdverseActionNotFound:   codes.NotFound,

	domain.FailureI9AlreadyExists:         codes.AlreadyExists,
	domain.FailurePendingDecisionExists:   codes.AlreadyExists,
	domain.FailureWorkAuthorizationExists: codes.AlreadyExists,
	domain.FailureAdverseActionInProgress: codes.AlreadyExists,

	domain.FailureInvalidDecision:            codes.InvalidArgument,
	domain.FailureInvalidAction:              codes.InvalidArgument,
	domain.FailureReasonRequiredForRejection: codes.InvalidArgument,
	domain.FailureApproversRequired:          codes.InvalidArgument,
	domain.FailureAttestationRequired:        codes.InvalidArgument,
	domain.FailureInvalidCitizenshipStatus:   codes.InvalidArgument,
	domain.FailureAlienDocumentRequired:      codes.InvalidArgument,
	domain.FailureEmployerFieldsRequired:     codes.InvalidArgument,
	domain.FailureInvalidDocumentCombination: codes.InvalidArgument,
	domain.FailureInvalidEVerifyResult:       codes.InvalidArgument,
	domain.FailureReverificationDocument:     codes.InvalidArgument,
	domain.FailureInvalidDeliveryMethod:      codes.InvalidArgument,
	domain.FailureReasonRequired:             codes.InvalidArgument,
	domain.FailureInvalidAdverseActionType:   codes.InvalidArgument,
	domain.FailureStageWrongOrganization:     codes.InvalidArgument,
	domain.FailureSameStage:                  codes.InvalidArgument,
	domain.FailureStageNotInJob:              codes.InvalidArgument,
	domain.FailureCandidateEmailMissing:      codes.FailedPrecondition,
}

// FailureToStatus converts a workflow error into a gRPC status error.
// Failures without an explicit mapping are precondition failures; errors
// that are not failures become Internal and keep their detail out of the
// response.
func FailureToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	if f, ok := domain.AsFailure(err); ok {
		code, found := failureCodes[f.Code]
		if !found {
			code = codes.FailedPrecondition
		}
		return status.Error(code, f.Error())
	}
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request cancelled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request deadline exceeded")
	}
	return status.Error(codes.Internal, "internal error")
}
