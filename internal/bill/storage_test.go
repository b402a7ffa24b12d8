package bill

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalStorage", func() {
	var (
		tmpDir  string
		storage Storage
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		var err error
		storage, err = NewLocalStorage(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Save", func() {
		var (
			filename  string
			savedPath string
			err       error
		)

		BeforeEach(func() {
			filename = "facture.png"
		})

		JustBeforeEach(func() {
			savedPath, err = storage.Save(filename, []byte("test file content"))
		})

		When("saving succeeds", func() {
			It("should return the correct path", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(savedPath).To(Equal(filename))
			})

			It("should save the file to disk", func() {
				Expect(filepath.Join(tmpDir, filename)).To(BeAnExistingFile())
			})
		})

		When("the key has a directory", func() {
			BeforeEach(func() {
				filename = "2024-01/facture.png"
			})

			It("creates the directory", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(filepath.Join(tmpDir, "2024-01", "facture.png")).To(BeAnExistingFile())
			})
		})

		When("saving succeeds twice", func() {
			It("leaves no temporary files behind", func() {
				_, err := storage.Save(filename, []byte("replaced"))
				Expect(err).NotTo(HaveOccurred())

				entries, err := os.ReadDir(tmpDir)
				Expect(err).NotTo(HaveOccurred())
				Expect(entries).To(HaveLen(1))
				Expect(os.ReadFile(filepath.Join(tmpDir, filename))).To(Equal([]byte("replaced")))
			})
		})

		When("the name tries to escape the base directory", func() {
			BeforeEach(func() {
				filename = "../escaped.png"
			})

			It("keeps the file inside the base directory", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(filepath.Join(tmpDir, "escaped.png")).To(BeAnExistingFile())
				Expect(filepath.Join(filepath.Dir(tmpDir), "escaped.png")).NotTo(BeAnExistingFile())
			})
		})

		When("the name is empty", func() {
			BeforeEach(func() {
				filename = ""
			})

			It("returns an error", func() {
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("Get", func() {
		When("file exists", func() {
			BeforeEach(func() {
				_, err := storage.Save("facture.png", []byte("test file content"))
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return the file data", func() {
				data, err := storage.Get("facture.png")
				Expect(err).NotTo(HaveOccurred())
				Expect(string(data)).To(Equal("test file content"))
			})
		})

		When("file does not exist", func() {
			It("returns a not found error", func() {
				_, err := storage.Get("nonexistent.png")
				Expect(err).To(MatchError(ErrNotFound))
			})
		})
	})

	Describe("Delete", func() {
		When("file exists", func() {
			BeforeEach(func() {
				_, err := storage.Save("facture.png", []byte("test content"))
				Expect(err).NotTo(HaveOccurred())
			})

			It("should remove the file from disk", func() {
				Expect(storage.Delete("facture.png")).To(Succeed())
				Expect(filepath.Join(tmpDir, "facture.png")).NotTo(BeAnExistingFile())
			})
		})

		When("file does not exist", func() {
			It("succeeds", func() {
				Expect(storage.Delete("nonexistent.png")).To(Succeed())
			})
		})
	})

	Describe("NewLocalStorage", func() {
		When("directory does not exist", func() {
			It("should create the directory", func() {
				storagePath := filepath.Join(GinkgoT().TempDir(), "receipts")
				_, err := NewLocalStorage(storagePath)
				Expect(err).NotTo(HaveOccurred())
				Expect(storagePath).To(BeADirectory())
			})
		})
	})
})
