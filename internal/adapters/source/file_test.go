package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSource(t *testing.T) {
	t.Run("NewFileSource создает корректный экземпляр", func(t *testing.T) {
		source := NewFileSource("train.conll")
		if source == nil {
			t.Error("Ожидался экземпляр FileSource, получен nil")
		}
	})

	t.Run("Fetch возвращает ошибку для пустого пути к файлу", func(t *testing.T) {
		source := &FileSource{filePath: ""}

		data, err := source.Fetch()
		if err == nil {
			t.Fatal("Ожидалась ошибка для пустого пути к файлу, получено nil")
		}

		if data != nil {
			t.Error("Ожидались nil данные для пустого пути к файлу, получены данные")
		}

		if err.Error() != "file path is empty" {
			t.Errorf("Ожидалось сообщение об ошибке 'file path is empty', получено '%s'", err.Error())
		}
	})

	t.Run("Fetch возвращает ошибку для несуществующего файла", func(t *testing.T) {
		source := &FileSource{filePath: filepath.Join(t.TempDir(), "missing.conll")}

		data, err := source.Fetch()
		if err == nil {
			t.Error("Ожидалась ошибка для несуществующего файла, получено nil")
		}

		if data != nil {
			t.Error("Ожидались nil данные для несуществующего файла, получены данные")
		}
	})

	t.Run("Fetch возвращает ошибку для каталога", func(t *testing.T) {
		source := &FileSource{filePath: t.TempDir()}

		if _, err := source.Fetch(); err == nil {
			t.Error("Ожидалась ошибка для каталога, получено nil")
		}
	})

	t.Run("Fetch возвращает данные для существующего файла", func(t *testing.T) {
		testData := []byte("ዋጋ B-PRICE\n2500 I-PRICE\n")
		path := filepath.Join(t.TempDir(), "train.conll")
		if err := os.WriteFile(path, testData, 0644); err != nil {
			t.Fatal("Не удалось создать временный файл")
		}

		source := &FileSource{filePath: path}

		data, err := source.Fetch()
		if err != nil {
			t.Errorf("Неожиданная ошибка: %v", err)
		}

		if string(data) != string(testData) {
			t.Errorf("Ожидались данные '%s', получено '%s'", string(testData), string(data))
		}
	})
}
