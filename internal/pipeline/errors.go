// Copyright 2026 Conductor OSS
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package pipeline

import (
	"errors"
	"fmt"
)

// Conditions that fail a single file.
var (
	ErrSourceNotFound = errors.New("source file not found")
	ErrNotRegularFile = errors.New("source is not a regular file")
	ErrExtraction     = errors.New("extraction failed")
	ErrWriteOutput    = errors.New("cannot write output")
)

// Stage names a step of the per-file sequence.
type Stage string

const (
	StageExcelClean Stage = "excel_clean"
	StageAI         Stage = "ai_client"
	StageImages     Stage = "images"
	StageDescribe   Stage = "describe"
	StageSummarize  Stage = "summarize"
	StageChunk      Stage = "chunk"
)

// StageError reports a degraded stage: the stage contributed nothing but the file still converted.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
