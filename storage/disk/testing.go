package disk

import (
	"io/ioutil"
	"os"

	"github.com/maguroid/MaguroDB/common"
)

// DiskManagerTest is a DiskManager for testing purposes. It picks the
// in-memory implementation unless a test suppresses it.
type DiskManagerTest struct {
	path string
	DiskManager
}

// NewDiskManagerTest returns a DiskManager instance for testing purposes
func NewDiskManagerTest() DiskManager {
	// Retrieve a temporary path.
	f, err := ioutil.TempFile("", "")
	if err != nil {
		panic(err)
	}
	path := f.Name()
	f.Close()
	os.Remove(path)

	var diskManager DiskManager
	if common.EnableOnMemStorage && !common.TempSuppressOnMemStorage {
		diskManager = NewVirtualDiskManagerImpl(path + ".db")
	} else {
		diskManager = NewDiskManagerImpl(path + ".db")
	}
	return &DiskManagerTest{path + ".db", diskManager}
}

// ShutDown closes the underlying manager and removes the backing file
func (d *DiskManagerTest) ShutDown() {
	defer os.Remove(d.path)
	d.DiskManager.ShutDown()
}
