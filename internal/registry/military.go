package registry

// db_flags bit layout: bit 0 = military, bit 1 = interesting.
const (
	DBFlagMilitary    uint32 = 1 << 0
	DBFlagInteresting uint32 = 1 << 1
)

// addrRange is an inclusive [Lo, Hi] ICAO address range.
type addrRange struct {
	Lo, Hi uint32
}

func (r addrRange) contains(addr uint32) bool {
	return addr >= r.Lo && addr <= r.Hi
}

// militaryRanges is the static table of ICAO address blocks assigned
// to military operators, OR'd into db_flags after every registry
// resolution regardless of what the registry row itself says.
var militaryRanges = []addrRange{
	{0xADF7C8, 0xAFFFFF}, // United States
	{0x010070, 0x01008F}, // Egypt
	{0x0A4000, 0x0A4FFF}, // Algeria
	{0x33FF00, 0x33FFFF}, // Italy
	{0x350000, 0x37FFFF}, // Spain
	{0x3AA000, 0x3AFFFF}, // France, block 1
	{0x3B7000, 0x3BFFFF}, // France, block 2
	{0x3EA000, 0x3EBFFF}, // Germany, block 1
	{0x3F4000, 0x3FBFFF}, // Germany, block 2/3
	{0x400000, 0x40003F}, // United Kingdom, block 1
	{0x43C000, 0x43CFFF}, // United Kingdom, block 2
	{0x444000, 0x446FFF}, // Austria
	{0x44F000, 0x44FFFF}, // Belgium
	{0x457000, 0x457FFF}, // Bulgaria
	{0x45F400, 0x45F4FF}, // Denmark
	{0x468000, 0x4683FF}, // Greece
	{0x473C00, 0x473C0F}, // Hungary
	{0x478100, 0x4781FF}, // Norway
	{0x480000, 0x480FFF}, // Netherlands
	{0x48D800, 0x48D87F}, // Poland
	{0x497C00, 0x497CFF}, // Portugal
	{0x498420, 0x49842F}, // Czech Republic
	{0x4B7000, 0x4B7FFF}, // Switzerland
	{0x4B8200, 0x4B82FF}, // Turkey
	{0x70C070, 0x70C07F}, // Oman
	{0x710258, 0x71028F}, // Saudi Arabia, block 1
	{0x710380, 0x71039F}, // Saudi Arabia, block 2
	{0x738A00, 0x738AFF}, // Israel
	{0x7CF800, 0x7CFAFF}, // Australia
	{0x800200, 0x8002FF}, // India
	{0xC20000, 0xC3FFFF}, // Canada
	{0xE40000, 0xE41FFF}, // Brazil
}

// df18Exceptions enumerates the anomalous DF18 (TIS-B/ADS-R fine
// format) transmitters flagged individually rather than via a range.
var df18Exceptions = map[uint32]bool{
	0xA08508: true,
	0xAB33A0: true,
	0xA7D24C: true,
	0xA6E2CD: true,
	0xAA8FCA: true,
	0xAC808B: true,
	0x48F6F7: true,
	0x7CBC3D: true,
	0x7C453A: true,
	0x401CF9: true,
	0x40206A: true,
	0xA3227D: true,
	0x478676: true,
	0x40389D: true,
	0x405ACF: true,
	0xC82452: true,
	0x40334A: true,
}

// ApplyStaticFlags ORs the static military-range bit into flags and
// reports whether addr is on the df18 exception list. Called after
// every registry resolution, independent of whatever the registry
// row's own flags column said.
func ApplyStaticFlags(addr uint32, flags uint32) (outFlags uint32, isDF18Exception bool) {
	outFlags = flags
	for _, r := range militaryRanges {
		if r.contains(addr) {
			outFlags |= DBFlagMilitary
			break
		}
	}
	return outFlags, df18Exceptions[addr]
}
