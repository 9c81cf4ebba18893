// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package codeexecutor_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/codeexecutor"
	"github.com/go-a2a/agentflow/types"
)

func TestExtractCodeAndTruncateContent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		content   *genai.Content
		wantCode  string
		wantParts []*genai.Part
	}{
		{
			name:    "nil content",
			content: nil,
		},
		{
			name: "executable code part",
			content: genai.NewContentFromParts([]*genai.Part{
				genai.NewPartFromText("let me compute"),
				genai.NewPartFromExecutableCode("print(1)", genai.LanguagePython),
				genai.NewPartFromText("trailing"),
			}, genai.RoleModel),
			wantCode: "print(1)",
			wantParts: []*genai.Part{
				genai.NewPartFromText("let me compute"),
				genai.NewPartFromExecutableCode("print(1)", genai.LanguagePython),
			},
		},
		{
			name: "executed code part is skipped",
			content: genai.NewContentFromParts([]*genai.Part{
				genai.NewPartFromExecutableCode("print(1)", genai.LanguagePython),
				genai.NewPartFromCodeExecutionResult(genai.OutcomeOK, "1"),
				genai.NewPartFromText("done"),
			}, genai.RoleModel),
			wantParts: []*genai.Part{
				genai.NewPartFromExecutableCode("print(1)", genai.LanguagePython),
				genai.NewPartFromCodeExecutionResult(genai.OutcomeOK, "1"),
				genai.NewPartFromText("done"),
			},
		},
		{
			name:     "delimited code block in text",
			content:  genai.NewContentFromText("Sure.\n```python\nx = 1\nprint(x)\n```\nmore text", genai.RoleModel),
			wantCode: "x = 1\nprint(x)",
			wantParts: []*genai.Part{
				genai.NewPartFromText("Sure.\n"),
				genai.NewPartFromExecutableCode("x = 1\nprint(x)", genai.LanguagePython),
			},
		},
		{
			name:     "code block without prefix",
			content:  genai.NewContentFromText("```tool_code\nprint(2)\n```", genai.RoleModel),
			wantCode: "print(2)",
			wantParts: []*genai.Part{
				genai.NewPartFromExecutableCode("print(2)", genai.LanguagePython),
			},
		},
		{
			name:      "plain text",
			content:   genai.NewContentFromText("no code here", genai.RoleModel),
			wantParts: []*genai.Part{genai.NewPartFromText("no code here")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := codeexecutor.ExtractCodeAndTruncateContent(tt.content, codeexecutor.DefaultCodeBlockDelimiters)
			if got != tt.wantCode {
				t.Errorf("code = %q, want %q", got, tt.wantCode)
			}
			if tt.content == nil {
				return
			}
			if diff := cmp.Diff(tt.wantParts, tt.content.Parts); diff != "" {
				t.Errorf("parts mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildCodeExecutionResultPart(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		result *types.CodeExecutionResult
		want   *genai.Part
	}{
		{
			name:   "stderr",
			result: &types.CodeExecutionResult{Stdout: "partial", Stderr: "boom"},
			want:   genai.NewPartFromCodeExecutionResult(genai.OutcomeFailed, "boom"),
		},
		{
			name:   "stdout",
			result: &types.CodeExecutionResult{Stdout: "42"},
			want:   genai.NewPartFromCodeExecutionResult(genai.OutcomeOK, "Code execution result:\n42\n"),
		},
		{
			name: "output files only",
			result: &types.CodeExecutionResult{OutputFiles: []*types.CodeExecutionFile{
				{Name: "plot.png"}, {Name: "data.csv"},
			}},
			want: genai.NewPartFromCodeExecutionResult(genai.OutcomeOK, "Saved artifacts:\n`plot.png`,`data.csv`"),
		},
		{
			name:   "empty",
			result: &types.CodeExecutionResult{},
			want:   genai.NewPartFromCodeExecutionResult(genai.OutcomeOK, "Code execution result:\n\n"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if diff := cmp.Diff(tt.want, codeexecutor.BuildCodeExecutionResultPart(tt.result)); diff != "" {
				t.Errorf("part mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConvertCodeExecutionParts(t *testing.T) {
	t.Parallel()

	code := codeexecutor.DefaultCodeBlockDelimiters[0]
	result := codeexecutor.DefaultExecutionResultDelimiters

	content := genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromText("running"),
		genai.NewPartFromExecutableCode("print(1)", genai.LanguagePython),
	}, genai.RoleModel)
	codeexecutor.ConvertCodeExecutionParts(content, code, result)
	want := genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromText("running"),
		genai.NewPartFromText("```tool_code\nprint(1)\n```"),
	}, genai.RoleModel)
	if diff := cmp.Diff(want, content); diff != "" {
		t.Errorf("code content mismatch (-want +got):\n%s", diff)
	}

	content = genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromCodeExecutionResult(genai.OutcomeOK, "1"),
	}, genai.RoleModel)
	codeexecutor.ConvertCodeExecutionParts(content, code, result)
	want = genai.NewContentFromText("```tool_output\n1\n```", genai.RoleUser)
	if diff := cmp.Diff(want, content); diff != "" {
		t.Errorf("result content mismatch (-want +got):\n%s", diff)
	}
}

func TestDataFilePreprocessingCode(t *testing.T) {
	t.Parallel()

	if got := codeexecutor.DataFilePreprocessingCode(&types.CodeExecutionFile{Name: "a.txt", MIMEType: "text/plain"}); got != "" {
		t.Errorf("expected no code for text files, got %q", got)
	}

	code := codeexecutor.DataFilePreprocessingCode(&types.CodeExecutionFile{Name: "data_1_2.csv", MIMEType: "text/csv"})
	for _, want := range []string{
		"def explore_df(df: pd.DataFrame)",
		`df_data_1_2 = pd.read_csv("data_1_2.csv")`,
		"explore_df(df_data_1_2)",
	} {
		if !strings.Contains(code, want) {
			t.Errorf("code does not contain %q:\n%s", want, code)
		}
	}
}

func TestDataFrameVarName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"data_1_1.csv":     "df_data_1_1",
		"dir/sales-q1.csv": "df_sales_q1",
		"my file.csv":      "df_my_file",
	}
	for in, want := range tests {
		if got := codeexecutor.DataFrameVarName(in); got != want {
			t.Errorf("DataFrameVarName(%q) = %q, want %q", in, got, want)
		}
	}
}
