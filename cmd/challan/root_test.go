package main

import (
	"bytes"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/challan-processor/internal/entity"
	"github.com/joseph-ayodele/challan-processor/internal/testfixture"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"process", "batch", "serve", "review", "export", "dbhealth"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "challan", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.NotNil(t, rootCmd.PersistentPreRunE)
}

func TestReviewCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range reviewCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"accept", "reject", "update"} {
		assert.True(t, names[name], "review should have subcommand %q", name)
	}
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		name   string
		flags  []string
		lookup func(string) bool
	}{
		{"process", []string{"no-ocr"}, func(f string) bool { return processCmd.Flags().Lookup(f) != nil }},
		{"batch", []string{"out", "no-ocr", "include-hidden", "include-rejected"}, func(f string) bool { return batchCmd.Flags().Lookup(f) != nil }},
		{"serve", []string{"addr", "inbox", "no-ocr"}, func(f string) bool { return serveCmd.Flags().Lookup(f) != nil }},
		{"export", []string{"batch", "out", "all", "include-rejected", "no-summary"}, func(f string) bool { return exportCmd.Flags().Lookup(f) != nil }},
		{"review update", []string{"tan", "deductor-name", "total", "cin", "challan-no", "date", "notes", "status"}, func(f string) bool { return reviewUpdateCmd.Flags().Lookup(f) != nil }},
		{"dbhealth", []string{"timeout"}, func(f string) bool { return dbhealthCmd.Flags().Lookup(f) != nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, f := range tt.flags {
				assert.True(t, tt.lookup(f), "%s should have --%s flag", tt.name, f)
			}
		})
	}
}

func TestExportCommand_Defaults(t *testing.T) {
	flag := exportCmd.Flags().Lookup("out")
	require.NotNil(t, flag)
	assert.Equal(t, "challans.xlsx", flag.DefValue)
}

func TestUpdateFromFlags_OnlyChanged(t *testing.T) {
	fs := reviewUpdateCmd.Flags()
	t.Cleanup(func() {
		fs.VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	})

	require.NoError(t, fs.Set("tan", "BLRS05586H"))
	require.NoError(t, fs.Set("total", "19395"))

	u, err := updateFromFlags(fs)
	require.NoError(t, err)
	require.NotNil(t, u.TAN)
	assert.Equal(t, "BLRS05586H", *u.TAN)
	require.NotNil(t, u.TotalAmount)
	assert.Equal(t, 19395.0, *u.TotalAmount)
	assert.Nil(t, u.CIN)
	assert.Nil(t, u.DateOfDeposit)
	assert.Nil(t, u.ReviewStatus)
	assert.False(t, u.IsEmpty())
}

func TestUpdateFromFlags_NoneSet(t *testing.T) {
	u, err := updateFromFlags(reviewAcceptCmd.Flags())
	require.NoError(t, err)
	assert.True(t, u.IsEmpty())
}

func TestPrintBatch(t *testing.T) {
	rec := testfixture.Samples()[0].Record()
	rec.SourceFile = "a.pdf"
	res := &entity.BatchResult{
		BatchID:    "b-1",
		TotalFiles: 3,
		Successful: 1,
		Failed:     2,
		Records:    []*entity.Record{rec},
		Errors:     map[string]string{"z.pdf": "broken", "c.pdf": "empty"},
	}

	var buf bytes.Buffer
	printBatch(&buf, res)
	out := buf.String()

	assert.Contains(t, out, "batch b-1: 3 files, 1 ok, 2 failed, 0 flagged")
	assert.Contains(t, out, "a.pdf")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("c.pdf")), bytes.Index(buf.Bytes(), []byte("z.pdf")))
}
