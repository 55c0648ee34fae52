package simulator

import (
	"context"
	"errors"

	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/model"
	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/service/engine"
	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/service/peaks"
)

// Kind 错误类别
type Kind int

const (
	KindValidation Kind = iota + 1
	KindInsufficientData
	KindDataRetrieval
	KindUnclassifiedEngine
	KindPeakDetection
	KindTimeout
)

// 面向用户的错误提示
const (
	TextParamCheck       = "Parameter check failed"
	TextInsufficientData = "There were not enough data points in the requested Wavenumber Range. Please expand your range and try again."
	TextDataRetrieval    = "There was an issue processing the data for the given parameters. Please adjust some settings and try again."
	TextPeakDetection    = "Unable to find peaks with the given data and settings. Please adjust your settings and try again."
	TextTimeout          = "The calculation took too long to complete. Please narrow your settings and try again."
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindInsufficientData:
		return "InsufficientDataError"
	case KindDataRetrieval:
		return "DataRetrievalError"
	case KindUnclassifiedEngine:
		return "UnclassifiedEngineError"
	case KindPeakDetection:
		return "PeakDetectionError"
	case KindTimeout:
		return "TimeoutError"
	default:
		return "UnknownError"
	}
}

// Error 流水线错误：Text 直接返回给用户，Err 保留原始原因
type Error struct {
	Kind Kind
	Text string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Text
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError 将任意错误归类；未知错误按原文透传
func AsError(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	switch {
	case errors.As(err, &e):
		return e
	case errors.Is(err, model.ErrParamCheck):
		return &Error{Kind: KindValidation, Text: TextParamCheck, Err: err}
	case errors.Is(err, engine.ErrEmptyDatabase):
		return &Error{Kind: KindInsufficientData, Text: TextInsufficientData, Err: err}
	case errors.Is(err, engine.ErrRetrieval):
		return &Error{Kind: KindDataRetrieval, Text: TextDataRetrieval, Err: err}
	case errors.Is(err, peaks.ErrDetection):
		return &Error{Kind: KindPeakDetection, Text: TextPeakDetection, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, Text: TextTimeout, Err: err}
	default:
		return &Error{Kind: KindUnclassifiedEngine, Text: err.Error(), Err: err}
	}
}

func validationError(err error) *Error {
	return &Error{Kind: KindValidation, Text: TextParamCheck, Err: err}
}
