package assistant

// 16-bit service UUIDs the assistant cares about when classifying
// advertisers.
const (
	UUIDBASS                   uint16 = 0x184f // Broadcast Audio Scan Service
	UUIDPACS                   uint16 = 0x1850 // Published Audio Capabilities Service
	UUIDBasicAudioAnnounce     uint16 = 0x1851 // Basic Audio Announcement (carries the BASE)
	UUIDBroadcastAudioAnnounce uint16 = 0x1852 // Broadcast Audio Announcement (carries the broadcast ID)
)

const (
	// PAIntervalUnknown is the wildcard periodic advertising interval.
	PAIntervalUnknown uint16 = 0xffff

	// BISSyncNoPref tells the sink to pick BISes itself.
	BISSyncNoPref uint32 = 0xfffffffe

	// BIGSyncFailed is the sentinel a sink reports in every subgroup when it
	// failed to sync to the BIG.
	BIGSyncFailed uint32 = 0xffffffff
)
