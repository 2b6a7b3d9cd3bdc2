package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckMultiplyOverflow(t *testing.T) {
	tests := []struct {
		name    string
		a       uint64
		b       uint64
		wantErr bool
	}{
		{name: "no overflow - small numbers", a: 10, b: 20, wantErr: false},
		{name: "no overflow - one zero", a: 0, b: math.MaxUint64, wantErr: false},
		{name: "no overflow - both zero", a: 0, b: 0, wantErr: false},
		{name: "overflow - max * 2", a: math.MaxUint64, b: 2, wantErr: true},
		{name: "overflow - large numbers", a: math.MaxUint64 / 2, b: 3, wantErr: true},
		{name: "no overflow - exact max", a: math.MaxUint64, b: 1, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckMultiplyOverflow(tt.a, tt.b)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestSafeMultiply(t *testing.T) {
	tests := []struct {
		name    string
		a       uint64
		b       uint64
		want    uint64
		wantErr bool
	}{
		{name: "normal multiplication", a: 10, b: 20, want: 200},
		{name: "zero multiplication", a: 0, b: 100, want: 0},
		{name: "overflow", a: math.MaxUint64, b: 2, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SafeMultiply(tt.a, tt.b)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestCalculateArraySize(t *testing.T) {
	tests := []struct {
		name    string
		count   uint32
		elem    uint64
		want    uint64
		wantErr bool
	}{
		{name: "byte array", count: 100, elem: 1, want: 100},
		{name: "int array", count: 100, elem: 4, want: 400},
		{name: "long array", count: 100, elem: 8, want: 800},
		{name: "empty array", count: 0, elem: 8, want: 0},
		{name: "overflow via huge count and width", count: math.MaxUint32, elem: math.MaxUint64 / 2, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateArraySize(tt.count, tt.elem)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestValidateBufferSize(t *testing.T) {
	tests := []struct {
		name        string
		size        uint64
		maxSize     uint64
		description string
		wantErr     bool
	}{
		{name: "valid size", size: 1000, maxSize: 10000, description: "test"},
		{name: "exact max", size: 10000, maxSize: 10000, description: "test"},
		{name: "exceeds max", size: 10001, maxSize: 10000, description: "test buffer", wantErr: true},
		{name: "array elements limit", size: MaxArrayElements + 1, maxSize: MaxArrayElements, description: "array", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBufferSize(tt.size, tt.maxSize, tt.description)
			if tt.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), "exceeds maximum")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestCeilDivSectors(t *testing.T) {
	tests := []struct {
		name    string
		size    uint64
		sector  uint64
		want    uint64
		wantErr bool
	}{
		{name: "exact sector", size: 4096, sector: 4096, want: 1},
		{name: "one byte over", size: 4097, sector: 4096, want: 2},
		{name: "zero size", size: 0, sector: 4096, want: 0},
		{name: "region chunk payload", size: 4096*2 + 1, sector: 4096, want: 3},
		{name: "zero sector size", size: 10, sector: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CeilDivSectors(tt.size, tt.sector)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
