package disk

import "os"

// fileOpenFlags opens the backing file for direct random-access reads and
// writes, creating it if it does not yet exist.
const fileOpenFlags = os.O_CREATE | os.O_RDWR
