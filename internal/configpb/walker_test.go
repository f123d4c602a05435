package configpb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- tiny protobuf builder helpers, test-only ---

func encodeVarint(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			break
		}
	}
	return out
}

func tagBytes(field uint32, wireType uint32) []byte {
	return encodeVarint(uint64(field)<<3 | uint64(wireType))
}

func lenDelim(field uint32, payload []byte) []byte {
	out := append([]byte{}, tagBytes(field, 2)...)
	out = append(out, encodeVarint(uint64(len(payload)))...)
	out = append(out, payload...)
	return out
}

func varintField(field uint32, v int64) []byte {
	out := append([]byte{}, tagBytes(field, 0)...)
	out = append(out, encodeVarint(uint64(uint32(int32(v))))...)
	return out
}

func buildURI(ip string, port int32) []byte {
	var b []byte
	b = append(b, lenDelim(1, []byte(ip))...)
	b = append(b, varintField(2, int64(port))...)
	return b
}

func buildURISlot(uri []byte) []byte {
	return lenDelim(2, uri)
}

func buildInstance(uriSlot []byte) []byte {
	return lenDelim(2, uriSlot)
}

func buildNetworkResolution(tags []string, instance []byte) []byte {
	var b []byte
	for _, tag := range tags {
		b = append(b, lenDelim(1, []byte(tag))...)
	}
	if instance != nil {
		b = append(b, lenDelim(2, instance)...)
	}
	return b
}

func buildConfigFile(resolutions ...[]byte) []byte {
	var b []byte
	for _, r := range resolutions {
		b = append(b, lenDelim(3, r)...)
	}
	return b
}

func buildFullConfig(tags []string, ip string, port int32) []byte {
	uri := buildURI(ip, port)
	slot := buildURISlot(uri)
	instance := buildInstance(slot)
	res := buildNetworkResolution(tags, instance)
	return buildConfigFile(res)
}

func TestWalkSingleTagRecord(t *testing.T) {
	data := buildFullConfig([]string{"svc-a"}, "10.0.0.5", 80)

	got, err := Walk(data)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"svc-a"}, got[0].Tags)
	assert.Equal(t, "10.0.0.5", got[0].IP)
	assert.Equal(t, int32(80), got[0].Port)
}

func TestWalkMissingPortDropsRecord(t *testing.T) {
	uri := lenDelim(1, []byte("10.0.0.5")) // only field 1 (ip), no port
	slot := buildURISlot(uri)
	instance := buildInstance(slot)
	res := buildNetworkResolution([]string{"svc-a"}, instance)
	data := buildConfigFile(res)

	got, err := Walk(data)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWalkMissingIPDropsRecord(t *testing.T) {
	uri := varintField(2, 80) // only field 2 (port), no ip
	slot := buildURISlot(uri)
	instance := buildInstance(slot)
	res := buildNetworkResolution([]string{"svc-a"}, instance)
	data := buildConfigFile(res)

	got, err := Walk(data)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWalkEmptyTagsDropsResolution(t *testing.T) {
	uri := buildURI("10.0.0.5", 80)
	slot := buildURISlot(uri)
	instance := buildInstance(slot)
	// No tags field at all, only network_client.
	res := buildNetworkResolution(nil, instance)
	data := buildConfigFile(res)

	got, err := Walk(data)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWalkMultipleTagsShareOneRecord(t *testing.T) {
	data := buildFullConfig([]string{"svc-a", "svc-a-alias"}, "10.0.0.5", 80)

	got, err := Walk(data)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"svc-a", "svc-a-alias"}, got[0].Tags)
}

func TestWalkUnknownTopLevelFieldsSkipped(t *testing.T) {
	res := buildNetworkResolution([]string{"svc-a"}, buildInstance(buildURISlot(buildURI("10.0.0.5", 80))))

	var data []byte
	data = append(data, lenDelim(1, []byte("ignored-gateway"))...) // field 1: gateway
	data = append(data, varintField(4, 7)...)                      // field 4: initial_sysresources
	data = append(data, lenDelim(3, res)...)                       // field 3: network_resolution

	got, err := Walk(data)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "10.0.0.5", got[0].IP)
}

func TestWalkEmptyBufferYieldsEmptyList(t *testing.T) {
	got, err := Walk(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWalkTruncatedLengthDelimitedIsAnError(t *testing.T) {
	bad := []byte{tagBytes(3, 2)[0], 0x05, 'a', 'b'} // claims length 5, only 2 bytes follow
	_, err := Walk(bad)
	assert.Error(t, err)
}

func TestWalkWrongWireTypeOnTypedFieldIsAnError(t *testing.T) {
	// network_resolution (field 3) declared as varint instead of length-delimited.
	bad := tagBytes(3, 0)
	bad = append(bad, encodeVarint(1)...)
	_, err := Walk(bad)
	assert.Error(t, err)
}

func TestWalkInvalidUTF8InTagIsAnError(t *testing.T) {
	badTag := []byte{0xFF, 0xFE} // not valid UTF-8
	res := lenDelim(1, badTag)
	data := buildConfigFile(res)
	_, err := Walk(data)
	assert.Error(t, err)
}

func TestWalkNegativePortPreservesSign(t *testing.T) {
	data := buildFullConfig([]string{"svc-neg"}, "10.0.0.5", -1)

	got, err := Walk(data)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int32(-1), got[0].Port)
}
