package bench

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Foadsf/HPC-GPGPU/mbox"
)

func TestWriteSystemInfo(t *testing.T) {
	var sb strings.Builder
	WriteSystemInfo(&sb, SystemInfo{
		FirmwareRevision: 0x5F1A5EED,
		ARMBase:          0,
		ARMSize:          948 << 20,
		HaveARMMemory:    true,
		VCBase:           0x3B400000,
		VCSize:           76 << 20,
		HaveVCMemory:     true,
	})

	out := sb.String()
	require.Contains(t, out, "0x5F1A5EED")
	require.Contains(t, out, "ARM memory")
	require.Contains(t, out, "948 MB")
	require.Contains(t, out, "GPU memory")
	require.Contains(t, out, "76 MB")
	require.Contains(t, out, "direct / uncached")
}

func TestWriteSystemInfoOmitsFailedQueries(t *testing.T) {
	var sb strings.Builder
	WriteSystemInfo(&sb, SystemInfo{})
	require.NotContains(t, sb.String(), "ARM memory")
	require.NotContains(t, sb.String(), "GPU memory")
}

func TestQuerySystemInfoBestEffort(t *testing.T) {
	// A regular file accepts open but rejects every property ioctl; all three
	// queries fail and the benchmark still gets a usable zero-valued answer.
	path := filepath.Join(t.TempDir(), "vcio")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	mb, err := mbox.OpenPath(path)
	require.NoError(t, err)
	defer mb.Close()

	info := QuerySystemInfo(mb, testLogger())
	require.Zero(t, info.FirmwareRevision)
	require.False(t, info.HaveARMMemory)
	require.False(t, info.HaveVCMemory)
}

func TestWriteReport(t *testing.T) {
	var sb strings.Builder
	WriteReport(&sb, Config{DataSize: 64 << 20, Iterations: 5}, []Result{
		{
			Name:           "Baseline (cached slice)",
			FillMillis:     10,
			TotalMillis:    10,
			FillBandwidth:  6.25,
			TotalBandwidth: 6.25,
			Verified:       true,
		},
		{
			Name:           "Standard (fill + copy)",
			FillMillis:     10,
			CopyMillis:     15,
			TotalMillis:    25,
			HasCopyPhase:   true,
			Verified:       true,
		},
		{
			Name:        "Zero-copy (direct write)",
			FillMillis:  40,
			TotalMillis: 40,
			Verified:    false,
			Mismatches:  2,
		},
	})

	out := sb.String()
	require.Contains(t, out, "64 MB, 5 iterations")
	require.Contains(t, out, "Baseline (cached slice)")
	require.Contains(t, out, "fill")
	require.Contains(t, out, "copy")
	require.Contains(t, out, "PASS")
	require.Contains(t, out, "FAIL (2 bad words)")
}

func TestWriteAnalysis(t *testing.T) {
	baseline := Result{TotalMillis: 10, TotalBandwidth: 6.0}
	standard := Result{FillMillis: 10, CopyMillis: 15, TotalMillis: 25}
	zero := Result{TotalMillis: 40, TotalBandwidth: 1.5}

	var sb strings.Builder
	WriteAnalysis(&sb, baseline, standard, zero)

	out := sb.String()
	require.Contains(t, out, "zero-copy is 1.60x slower")
	require.Contains(t, out, "copy overhead in the standard path: 60.0%")
	require.Contains(t, out, "uncached write penalty: 4.00x")
}

func TestWriteAnalysisFasterPath(t *testing.T) {
	standard := Result{CopyMillis: 20, TotalMillis: 40}
	zero := Result{TotalMillis: 10, TotalBandwidth: 8.0}

	var sb strings.Builder
	WriteAnalysis(&sb, Result{TotalBandwidth: 6.0, TotalMillis: 5}, standard, zero)
	require.Contains(t, sb.String(), "zero-copy is 4.00x faster")
	require.Contains(t, sb.String(), "kept pace")
}

func TestWriteAnalysisSkipsIncompleteRuns(t *testing.T) {
	var sb strings.Builder
	WriteAnalysis(&sb, Result{}, Result{}, Result{TotalMillis: 5})
	require.Empty(t, sb.String())
}

func TestAllVerified(t *testing.T) {
	require.True(t, AllVerified(nil))
	require.True(t, AllVerified([]Result{{Verified: true}, {Verified: true}}))
	require.False(t, AllVerified([]Result{{Verified: true}, {Verified: false}}))
}
